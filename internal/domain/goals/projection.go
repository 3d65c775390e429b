package goals

import (
	"fmt"
	"slices"

	"github.com/adanyl0v/smart-goals/internal/models"
)

type FilterMode int

const (
	FilterAll FilterMode = iota
	FilterActive
	FilterCompleted
)

func ParseFilterMode(s string) (FilterMode, error) {
	switch s {
	case "", "all":
		return FilterAll, nil
	case "active":
		return FilterActive, nil
	case "completed":
		return FilterCompleted, nil
	default:
		return FilterAll, fmt.Errorf("unknown filter %q", s)
	}
}

func (m FilterMode) String() string {
	switch m {
	case FilterAll:
		return "all"
	case FilterActive:
		return "active"
	case FilterCompleted:
		return "completed"
	default:
		return fmt.Sprintf("FilterMode(%d)", int(m))
	}
}

func (m FilterMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *FilterMode) UnmarshalText(text []byte) error {
	parsed, err := ParseFilterMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m FilterMode) match(g models.Goal) bool {
	switch m {
	case FilterActive:
		return !g.Completed()
	case FilterCompleted:
		return g.Completed()
	default:
		return true
	}
}

// Filter returns the goals matching mode in their original order.
func Filter(goals []models.Goal, mode FilterMode) []models.Goal {
	out := make([]models.Goal, 0, len(goals))
	for _, g := range goals {
		if mode.match(g) {
			out = append(out, g)
		}
	}
	return out
}

// Sort returns a copy ordered by status rank, then by deadline. Goals
// without a usable deadline sort as if due at the Unix epoch, ahead of
// dated goals of the same status. Ties keep their input order.
func Sort(goals []models.Goal) []models.Goal {
	out := slices.Clone(goals)
	slices.SortStableFunc(out, func(a, b models.Goal) int {
		if ra, rb := a.Status.Rank(), b.Status.Rank(); ra != rb {
			return ra - rb
		}
		return a.DeadlineOrEpoch().Compare(b.DeadlineOrEpoch())
	})
	return out
}

// View is what a goal list displays.
type View struct {
	Filter FilterMode    `json:"filter"`
	Goals  []models.Goal `json:"goals"`
	// Shown counts the goals passing the filter, Total all goals.
	Shown int `json:"shown"`
	Total int `json:"total"`
}

func Project(goals []models.Goal, mode FilterMode) View {
	filtered := Filter(goals, mode)
	return View{
		Filter: mode,
		Goals:  Sort(filtered),
		Shown:  len(filtered),
		Total:  len(goals),
	}
}
