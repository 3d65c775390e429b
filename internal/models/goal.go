package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	MinProgress = 0
	MaxProgress = 100
)

var ErrInvalidProgress = errors.New("invalid goal progress")

// Goal field names as stored in the goal store.
const (
	FieldID          = "id"
	FieldUserID      = "userId"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldDeadline    = "deadline"
	FieldStatus      = "status"
	FieldProgress    = "progress"
	FieldCreatedAt   = "createdAt"
)

type Goal struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Clone returns a copy that shares no memory with g.
func (g Goal) Clone() Goal {
	if g.Deadline != nil {
		d := *g.Deadline
		g.Deadline = &d
	}
	return g
}

func (g Goal) Completed() bool {
	return g.Status == StatusCompleted
}

// DeadlineOrEpoch returns the deadline, or the Unix epoch when the
// deadline is missing or could not be parsed.
func (g Goal) DeadlineOrEpoch() time.Time {
	if g.Deadline == nil {
		return time.Unix(0, 0).UTC()
	}
	return *g.Deadline
}

// ParseProgress converts a stored or submitted progress value into an
// integer percentage. Strings are accepted because form inputs submit
// the range value as text.
func ParseProgress(v any) (int, error) {
	var p int
	switch val := v.(type) {
	case int:
		p = val
	case int32:
		p = int(val)
	case int64:
		p = int(val)
	case float32:
		p = int(math.Round(float64(val)))
	case float64:
		p = int(math.Round(val))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidProgress, val)
		}
		p = n
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidProgress, v)
	}

	if p < MinProgress || p > MaxProgress {
		return 0, fmt.Errorf("%w: %d out of range", ErrInvalidProgress, p)
	}
	return p, nil
}
