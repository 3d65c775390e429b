package goals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
)

type fakeSubscription struct {
	userID  string
	onBatch store.BatchFunc
	onError store.ErrorFunc

	mu     sync.Mutex
	closed int
}

func (s *fakeSubscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed > 0
}

// fakeSubscriber hands the callbacks to the test instead of running a
// delivery goroutine, so batches are applied exactly when a test says so.
type fakeSubscriber struct {
	mu   sync.Mutex
	subs []*fakeSubscription
	err  error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, userID string, onBatch store.BatchFunc, onError store.ErrorFunc) (store.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sub := &fakeSubscription{userID: userID, onBatch: onBatch, onError: onError}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeSubscriber) all() []*fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeSubscription(nil), f.subs...)
}

func (f *fakeSubscriber) last(t *testing.T) *fakeSubscription {
	t.Helper()
	subs := f.all()
	if len(subs) == 0 {
		t.Fatal("no subscription opened")
	}
	return subs[len(subs)-1]
}

type writeCall struct {
	op     string
	userID string
	id     string
	fields store.Fields
}

type fakeWriter struct {
	mu    sync.Mutex
	calls []writeCall
	err   error
}

func (w *fakeWriter) Update(_ context.Context, userID, id string, fields store.Fields) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, writeCall{op: "update", userID: userID, id: id, fields: fields.Clone()})
	return w.err
}

func (w *fakeWriter) Remove(_ context.Context, userID, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, writeCall{op: "remove", userID: userID, id: id})
	return w.err
}

func (w *fakeWriter) recorded() []writeCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]writeCall(nil), w.calls...)
}

func waitReady(t *testing.T, s *SyncSession) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("sync session never settled")
	}
}

// waitState blocks until pred holds for the state.
func waitState(t *testing.T, state *State, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	changed := make(chan struct{}, 1)
	cancel := state.Watch(func(Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	timeout := time.After(2 * time.Second)
	for {
		snap := state.Snapshot()
		if pred(snap) {
			return snap
		}
		select {
		case <-changed:
		case <-timeout:
			t.Fatalf("state never matched, last: %+v", snap)
			return snap
		}
	}
}

func date(s string) *time.Time {
	return models.ParseDate(s)
}

func doc(id, title, status string, deadline any) store.Document {
	f := store.Fields{
		models.FieldUserID:   "alice",
		models.FieldTitle:    title,
		models.FieldStatus:   status,
		models.FieldProgress: 0,
	}
	if deadline != nil {
		f[models.FieldDeadline] = deadline
	}
	return store.Document{ID: id, Fields: f}
}
