package goals

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
)

// FromDocument converts a stored goal into a Goal. Dates that can't be
// parsed become nil; a missing creation time becomes now. Unknown statuses
// and out of range progress fall back to zero values and are logged.
func FromDocument(logger zerolog.Logger, doc store.Document, now time.Time) models.Goal {
	f := doc.Fields
	g := models.Goal{
		ID:          doc.ID,
		UserID:      stringField(f, models.FieldUserID),
		Title:       stringField(f, models.FieldTitle),
		Description: stringField(f, models.FieldDescription),
		Deadline:    models.ParseDate(f[models.FieldDeadline]),
	}

	if createdAt := models.ParseDate(f[models.FieldCreatedAt]); createdAt != nil {
		g.CreatedAt = *createdAt
	} else {
		g.CreatedAt = now
	}

	if raw, ok := f[models.FieldStatus]; ok {
		status, err := parseStatusValue(raw)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("goal_id", doc.ID).
				Msg("unknown goal status")
		}
		g.Status = status
	}

	progress, err := models.ParseProgress(f[models.FieldProgress])
	if err != nil {
		logger.Warn().
			Err(err).
			Str("goal_id", doc.ID).
			Msg("invalid goal progress")
	}
	g.Progress = progress
	return g
}

func stringField(f store.Fields, name string) string {
	s, _ := f[name].(string)
	return s
}

func parseStatusValue(v any) (models.Status, error) {
	switch val := v.(type) {
	case models.Status:
		if !val.Valid() {
			return models.StatusNotStarted, models.ErrInvalidStatus
		}
		return val, nil
	case string:
		return models.ParseStatus(val)
	default:
		return models.StatusNotStarted, models.ErrInvalidStatus
	}
}
