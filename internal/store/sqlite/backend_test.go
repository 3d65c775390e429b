package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
)

func openBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(zerolog.Nop(), filepath.Join(t.TempDir(), "goals.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestInsertListInArrivalOrder(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)

	for _, title := range []string{"first", "second", "third"} {
		err := b.Insert(ctx, store.NewID(), store.Fields{
			models.FieldUserID:    "alice",
			models.FieldTitle:     title,
			models.FieldDeadline:  "2025-03-01",
			models.FieldStatus:    "not-started",
			models.FieldProgress:  0,
			models.FieldCreatedAt: "2024-01-01T10:00:00Z",
		})
		assert.Equal(t, nil, err)
	}
	err := b.Insert(ctx, store.NewID(), store.Fields{
		models.FieldUserID: "bob",
		models.FieldTitle:  "not yours",
	})
	assert.Equal(t, nil, err)

	docs, err := b.List(ctx, "alice")
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(docs))
	assert.Equal(t, "first", docs[0].Fields[models.FieldTitle])
	assert.Equal(t, "third", docs[2].Fields[models.FieldTitle])
	assert.Equal(t, "2025-03-01", docs[0].Fields[models.FieldDeadline])
}

func TestMissingDeadlineIsAbsent(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)
	id := store.NewID()

	err := b.Insert(ctx, id, store.Fields{
		models.FieldUserID: "alice",
		models.FieldTitle:  "undated",
	})
	assert.Equal(t, nil, err)

	doc, err := b.Get(ctx, "alice", id)
	assert.Equal(t, nil, err)
	_, ok := doc.Fields[models.FieldDeadline]
	assert.Equal(t, false, ok)
	assert.Equal(t, true, models.ParseDate(doc.Fields[models.FieldCreatedAt]) != nil)
}

func TestUpdateAndDeleteAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	b := openBackend(t)
	id := store.NewID()

	err := b.Insert(ctx, id, store.Fields{
		models.FieldUserID: "alice",
		models.FieldTitle:  "Swim",
	})
	assert.Equal(t, nil, err)

	err = b.Update(ctx, "bob", id, store.Fields{models.FieldTitle: "Sink"})
	assert.Equal(t, true, errors.Is(err, store.ErrGoalNotFound))

	err = b.Update(ctx, "alice", id, store.Fields{
		models.FieldStatus:   models.StatusCompleted,
		models.FieldProgress: 100,
	})
	assert.Equal(t, nil, err)

	doc, err := b.Get(ctx, "alice", id)
	assert.Equal(t, nil, err)
	assert.Equal(t, "completed", doc.Fields[models.FieldStatus])
	assert.Equal(t, 100, doc.Fields[models.FieldProgress])

	err = b.Delete(ctx, "bob", id)
	assert.Equal(t, true, errors.Is(err, store.ErrGoalNotFound))

	err = b.Delete(ctx, "alice", id)
	assert.Equal(t, nil, err)

	_, err = b.Get(ctx, "alice", id)
	assert.Equal(t, true, errors.Is(err, store.ErrGoalNotFound))
}
