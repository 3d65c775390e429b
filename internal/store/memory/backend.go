// Package memory keeps goals in process memory. Creation times are kept
// as protobuf timestamps, the way document stores hand them out.
package memory

import (
	"context"
	"sync"

	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
)

type Backend struct {
	mu    sync.RWMutex
	goals map[string]store.Document
	// Insertion order, which is the order List reports.
	order []string
}

var _ store.Backend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{
		goals: make(map[string]store.Document),
	}
}

func (b *Backend) List(ctx context.Context, userID string) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	docs := make([]store.Document, 0)
	for _, id := range b.order {
		doc := b.goals[id]
		if owner(doc) == userID {
			docs = append(docs, doc.Clone())
		}
	}
	return docs, nil
}

func (b *Backend) Get(ctx context.Context, userID, id string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	doc, ok := b.goals[id]
	if !ok || owner(doc) != userID {
		return store.Document{}, store.ErrGoalNotFound
	}
	return doc.Clone(), nil
}

func (b *Backend) Insert(ctx context.Context, id string, fields store.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized, err := normalize(fields)
	if err != nil {
		return err
	}
	normalized[models.FieldCreatedAt] = store.NativeTimestamp(fields[models.FieldCreatedAt])

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.goals[id]; !exists {
		b.order = append(b.order, id)
	}
	b.goals[id] = store.Document{ID: id, Fields: normalized}
	return nil
}

func (b *Backend) Update(ctx context.Context, userID, id string, fields store.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized, err := normalize(fields)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	doc, ok := b.goals[id]
	if !ok || owner(doc) != userID {
		return store.ErrGoalNotFound
	}
	merged := doc.Fields.Clone()
	for k, v := range normalized {
		merged[k] = v
	}
	b.goals[id] = store.Document{ID: id, Fields: merged}
	return nil
}

func (b *Backend) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	doc, ok := b.goals[id]
	if !ok || owner(doc) != userID {
		return store.ErrGoalNotFound
	}
	delete(b.goals, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

func owner(doc store.Document) string {
	userID, _ := doc.Fields[models.FieldUserID].(string)
	return userID
}

// normalize validates the fields and stores status and progress in their
// canonical form. Deadlines are kept as given.
func normalize(fields store.Fields) (store.Fields, error) {
	out := make(store.Fields, len(fields))
	for name, v := range fields {
		switch name {
		case models.FieldDeadline, models.FieldCreatedAt:
			out[name] = v
		default:
			encoded, err := store.EncodeValue(name, v)
			if err != nil {
				return nil, err
			}
			out[name] = encoded
		}
	}
	return out, nil
}
