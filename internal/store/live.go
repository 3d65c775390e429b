package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/metrics"
	"github.com/adanyl0v/smart-goals/internal/models"
)

// Live turns a Backend into a GoalStore. Every successful write wakes the
// owner's subscriptions, which then re-deliver the full goal set.
type Live struct {
	logger  zerolog.Logger
	backend Backend
	hub     *Hub
	metrics *metrics.Metrics
	now     func() time.Time
}

var _ GoalStore = (*Live)(nil)

func NewLive(logger zerolog.Logger, backend Backend, hub *Hub, m *metrics.Metrics) *Live {
	return &Live{
		logger:  logger,
		backend: backend,
		hub:     hub,
		metrics: m,
		now:     time.Now,
	}
}

func (l *Live) Hub() *Hub {
	return l.hub
}

func (l *Live) Subscribe(ctx context.Context, userID string, onBatch BatchFunc, onError ErrorFunc) (Subscription, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	return l.hub.Subscribe(ctx, userID, l.backend.List, onBatch, onError), nil
}

func (l *Live) Create(ctx context.Context, fields Fields) (string, error) {
	fields = fields.Clone()

	userID, _ := fields[models.FieldUserID].(string)
	if userID == "" {
		return "", ErrMissingOwner
	}
	if title, _ := fields[models.FieldTitle].(string); strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidField)
	}
	if _, ok := fields[models.FieldStatus]; !ok {
		fields[models.FieldStatus] = models.StatusNotStarted.String()
	}
	if _, ok := fields[models.FieldProgress]; !ok {
		fields[models.FieldProgress] = models.MinProgress
	}
	if _, ok := fields[models.FieldCreatedAt]; !ok {
		fields[models.FieldCreatedAt] = l.now().UTC()
	}
	delete(fields, models.FieldID)

	id := NewID()
	err := l.backend.Insert(ctx, id, fields)
	l.metrics.Write(metrics.WriteCreate, err)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to create goal")
		return "", err
	}
	l.logger.Info().
		Str("goal_id", id).
		Str("user_id", userID).
		Msg("created goal")

	l.hub.Notify(userID)
	return id, nil
}

func (l *Live) Get(ctx context.Context, userID, id string) (Document, error) {
	return l.backend.Get(ctx, userID, id)
}

func (l *Live) List(ctx context.Context, userID string) ([]Document, error) {
	return l.backend.List(ctx, userID)
}

func (l *Live) Update(ctx context.Context, userID, id string, fields Fields) error {
	err := ValidateUpdate(fields)
	if err == nil {
		err = l.backend.Update(ctx, userID, id, fields.Clone())
	}
	l.metrics.Write(metrics.WriteUpdate, err)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("goal_id", id).
			Str("user_id", userID).
			Msg("failed to update goal")
		return err
	}
	l.logger.Info().
		Str("goal_id", id).
		Str("user_id", userID).
		Msg("updated goal")

	l.hub.Notify(userID)
	return nil
}

func (l *Live) Remove(ctx context.Context, userID, id string) error {
	err := l.backend.Delete(ctx, userID, id)
	l.metrics.Write(metrics.WriteRemove, err)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("goal_id", id).
			Str("user_id", userID).
			Msg("failed to remove goal")
		return err
	}
	l.logger.Info().
		Str("goal_id", id).
		Str("user_id", userID).
		Msg("removed goal")

	l.hub.Notify(userID)
	return nil
}
