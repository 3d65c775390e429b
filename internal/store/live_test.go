package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
	"github.com/adanyl0v/smart-goals/internal/store/memory"
)

func newLive() *store.Live {
	logger := zerolog.Nop()
	return store.NewLive(logger, memory.NewBackend(), store.NewHub(logger, nil), nil)
}

func goalFields(userID, title string) store.Fields {
	return store.Fields{
		models.FieldUserID:   userID,
		models.FieldTitle:    title,
		models.FieldDeadline: "2025-01-01",
	}
}

type recorder struct {
	batches chan []store.Document
	errs    chan error
}

func newRecorder() *recorder {
	return &recorder{
		batches: make(chan []store.Document, 16),
		errs:    make(chan error, 1),
	}
}

func (r *recorder) onBatch(docs []store.Document) { r.batches <- docs }
func (r *recorder) onError(err error)             { r.errs <- err }

// waitFor drains batches until one has n documents.
func (r *recorder) waitFor(t *testing.T, n int) []store.Document {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case docs := <-r.batches:
			if len(docs) == n {
				return docs
			}
		case <-timeout:
			t.Fatalf("no batch with %d goals", n)
			return nil
		}
	}
}

func TestSubscribeDeliversFullReplaceBatches(t *testing.T) {
	ctx := context.Background()
	live := newLive()
	rec := newRecorder()

	sub, err := live.Subscribe(ctx, "alice", rec.onBatch, rec.onError)
	assert.Equal(t, nil, err)
	defer sub.Close()

	rec.waitFor(t, 0)

	first, err := live.Create(ctx, goalFields("alice", "Run a marathon"))
	assert.Equal(t, nil, err)
	_, err = live.Create(ctx, goalFields("alice", "Learn Go"))
	assert.Equal(t, nil, err)
	rec.waitFor(t, 2)

	err = live.Remove(ctx, "alice", first)
	assert.Equal(t, nil, err)

	docs := rec.waitFor(t, 1)
	assert.Equal(t, "Learn Go", docs[0].Fields[models.FieldTitle])
}

func TestSubscribeIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	live := newLive()
	rec := newRecorder()

	_, err := live.Create(ctx, goalFields("bob", "Bob's goal"))
	assert.Equal(t, nil, err)
	_, err = live.Create(ctx, goalFields("alice", "Alice's goal"))
	assert.Equal(t, nil, err)

	sub, err := live.Subscribe(ctx, "alice", rec.onBatch, rec.onError)
	assert.Equal(t, nil, err)
	defer sub.Close()

	docs := rec.waitFor(t, 1)
	assert.Equal(t, "alice", docs[0].Fields[models.FieldUserID])
}

func TestCloseIsIdempotentAndStopsDelivery(t *testing.T) {
	ctx := context.Background()
	live := newLive()
	rec := newRecorder()

	sub, err := live.Subscribe(ctx, "alice", rec.onBatch, rec.onError)
	assert.Equal(t, nil, err)
	rec.waitFor(t, 0)

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, live.Hub().Subscribers("alice"))

	_, err = live.Create(ctx, goalFields("alice", "After close"))
	assert.Equal(t, nil, err)

	select {
	case docs := <-rec.batches:
		t.Fatalf("unexpected batch after close: %v", docs)
	case <-time.After(50 * time.Millisecond):
	}
}

type failingBackend struct {
	store.Backend
	err error
}

func (b failingBackend) List(context.Context, string) ([]store.Document, error) {
	return nil, b.err
}

func TestSubscriptionErrorEndsSubscription(t *testing.T) {
	logger := zerolog.Nop()
	hub := store.NewHub(logger, nil)
	boom := errors.New("permission denied")
	live := store.NewLive(logger, failingBackend{Backend: memory.NewBackend(), err: boom}, hub, nil)
	rec := newRecorder()

	sub, err := live.Subscribe(context.Background(), "alice", rec.onBatch, rec.onError)
	assert.Equal(t, nil, err)
	defer sub.Close()

	select {
	case got := <-rec.errs:
		assert.Equal(t, true, errors.Is(got, boom))
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription error")
	}

	sub.Close()
	assert.Equal(t, 0, hub.Subscribers("alice"))
}

func TestUpdateScopedToOwner(t *testing.T) {
	ctx := context.Background()
	live := newLive()

	id, err := live.Create(ctx, goalFields("alice", "Read 12 books"))
	assert.Equal(t, nil, err)

	err = live.Update(ctx, "mallory", id, store.Fields{models.FieldTitle: "pwned"})
	assert.Equal(t, true, errors.Is(err, store.ErrGoalNotFound))

	err = live.Update(ctx, "alice", id, store.Fields{models.FieldProgress: 30})
	assert.Equal(t, nil, err)

	doc, err := live.Get(ctx, "alice", id)
	assert.Equal(t, nil, err)
	assert.Equal(t, "Read 12 books", doc.Fields[models.FieldTitle])
	assert.Equal(t, 30, doc.Fields[models.FieldProgress])
}

func TestUpdateRejectsImmutableFields(t *testing.T) {
	ctx := context.Background()
	live := newLive()

	id, err := live.Create(ctx, goalFields("alice", "Meditate"))
	assert.Equal(t, nil, err)

	err = live.Update(ctx, "alice", id, store.Fields{models.FieldUserID: "bob"})
	assert.Equal(t, true, errors.Is(err, store.ErrImmutableField))

	err = live.Update(ctx, "alice", id, store.Fields{"color": "red"})
	assert.Equal(t, true, errors.Is(err, store.ErrUnknownField))

	err = live.Update(ctx, "alice", id, store.Fields{models.FieldStatus: "archived"})
	assert.Equal(t, true, errors.Is(err, store.ErrInvalidField))
}

func TestCreateDefaults(t *testing.T) {
	ctx := context.Background()
	live := newLive()

	_, err := live.Create(ctx, store.Fields{models.FieldTitle: "orphan"})
	assert.Equal(t, true, errors.Is(err, store.ErrMissingOwner))

	_, err = live.Create(ctx, store.Fields{models.FieldUserID: "alice", models.FieldTitle: "  "})
	assert.Equal(t, true, errors.Is(err, store.ErrInvalidField))

	id, err := live.Create(ctx, goalFields("alice", "Defaults"))
	assert.Equal(t, nil, err)

	doc, err := live.Get(ctx, "alice", id)
	assert.Equal(t, nil, err)
	assert.Equal(t, models.StatusNotStarted.String(), doc.Fields[models.FieldStatus])
	assert.Equal(t, 0, doc.Fields[models.FieldProgress])
	assert.Equal(t, true, models.ParseDate(doc.Fields[models.FieldCreatedAt]) != nil)
}
