package models

import (
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	NoDeadline  = "No deadline"
	UnknownDate = "Unknown date"

	displayDateLayout = "Jan 2, 2006"
)

var isoLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

type timeLike interface {
	AsTime() time.Time
}

// ParseDate interprets a stored date value. It returns nil for missing,
// empty, malformed or unsupported values and never panics.
func ParseDate(v any) *time.Time {
	var t time.Time
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		t = val
	case *time.Time:
		if val == nil {
			return nil
		}
		t = *val
	case *timestamppb.Timestamp:
		if val == nil || val.CheckValid() != nil {
			return nil
		}
		t = val.AsTime()
	case timeLike:
		t = val.AsTime()
	case string:
		parsed, ok := parseISO(val)
		if !ok {
			return nil
		}
		t = parsed
	default:
		return nil
	}

	if t.IsZero() {
		return nil
	}
	return &t
}

func parseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatISODate formats t as a date-only ISO string.
func FormatISODate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// FormatDisplayDate renders t for people, or fallback when t is unset.
func FormatDisplayDate(t *time.Time, fallback string) string {
	if t == nil || t.IsZero() {
		return fallback
	}
	return t.Format(displayDateLayout)
}
