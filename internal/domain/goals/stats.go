package goals

import (
	"math"

	"github.com/adanyl0v/smart-goals/internal/models"
)

type Stats struct {
	Total      int `json:"total"`
	NotStarted int `json:"notStarted"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	// CompletionRate is the rounded share of completed goals in percent.
	CompletionRate int `json:"completionRate"`
}

func ComputeStats(goals []models.Goal) Stats {
	var st Stats
	for _, g := range goals {
		switch g.Status {
		case models.StatusNotStarted:
			st.NotStarted++
		case models.StatusInProgress:
			st.InProgress++
		case models.StatusCompleted:
			st.Completed++
		}
	}
	st.Total = len(goals)
	if st.Total > 0 {
		st.CompletionRate = int(math.Round(float64(st.Completed) / float64(st.Total) * 100))
	}
	return st
}
