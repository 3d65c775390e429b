package models

import (
	"errors"
	"fmt"
)

var ErrInvalidStatus = errors.New("invalid goal status")

// Status is the workflow stage of a goal. The zero value is StatusNotStarted.
//
// The numeric value doubles as the sort rank, so the declaration order
// must follow the workflow.
type Status int

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusCompleted
)

// Statuses lists every status in rank order.
var Statuses = []Status{
	StatusNotStarted,
	StatusInProgress,
	StatusCompleted,
}

func ParseStatus(s string) (Status, error) {
	switch s {
	case "not-started":
		return StatusNotStarted, nil
	case "in-progress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	default:
		return StatusNotStarted, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// String returns the wire name stored in the goal store.
func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not-started"
	case StatusInProgress:
		return "in-progress"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Label is the human readable form of the status.
func (s Status) Label() string {
	switch s {
	case StatusNotStarted:
		return "not started"
	case StatusInProgress:
		return "in progress"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func (s Status) Rank() int {
	switch s {
	case StatusNotStarted:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return len(Statuses)
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// ProgressFor returns the progress a goal must carry after moving to s.
// Completing a goal forces 100; other stages keep the current value.
func (s Status) ProgressFor(current int) int {
	switch s {
	case StatusCompleted:
		return MaxProgress
	case StatusNotStarted, StatusInProgress:
		return current
	default:
		return current
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
