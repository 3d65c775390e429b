package goals

import (
	"context"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/domain/auth"
	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
	"github.com/adanyl0v/smart-goals/internal/store/memory"
)

func TestEditSessionRoundTripsThroughLiveStore(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()
	live := store.NewLive(logger, memory.NewBackend(), store.NewHub(logger, nil), nil)

	id, err := live.Create(ctx, store.Fields{
		models.FieldUserID:   "alice",
		models.FieldTitle:    "Learn Go",
		models.FieldDeadline: "2025-02-01",
		models.FieldProgress: 30,
	})
	assert.Equal(t, nil, err)

	session := NewSyncSession(logger, live, NewState(), nil)
	assert.Equal(t, nil, session.Start(ctx, auth.NewSignedIn("alice")))
	defer session.Stop()

	snap := waitState(t, session.State(), func(s Snapshot) bool {
		return !s.Loading && len(s.Goals) == 1
	})
	edit := NewEditSession(logger, live, snap.Goals[0])

	assert.Equal(t, nil, edit.SetStatus(ctx, models.StatusCompleted))
	snap = waitState(t, session.State(), func(s Snapshot) bool {
		return len(s.Goals) == 1 && s.Goals[0].Completed()
	})
	assert.Equal(t, 100, snap.Goals[0].Progress)
	edit.Refresh(snap.Goals[0])

	stats := ComputeStats(snap.Goals)
	assert.Equal(t, 100, stats.CompletionRate)

	deleted, err := edit.Delete(ctx, ConfirmFunc(func(_ context.Context, g models.Goal) (bool, error) {
		return g.ID == id, nil
	}))
	assert.Equal(t, nil, err)
	assert.Equal(t, true, deleted)

	waitState(t, session.State(), func(s Snapshot) bool { return len(s.Goals) == 0 })
}
