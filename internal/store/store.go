// Package store defines the goal store used by the sync and edit sessions
// and the live fan-out that re-delivers a user's full goal set after every
// change.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/adanyl0v/smart-goals/internal/models"
)

var (
	ErrGoalNotFound   = errors.New("goal not found")
	ErrMissingOwner   = errors.New("goal owner is required")
	ErrUnknownField   = errors.New("unknown goal field")
	ErrImmutableField = errors.New("goal field cannot be updated")
	ErrInvalidField   = errors.New("invalid goal field value")
)

// Fields holds raw goal attributes keyed by the models.Field* names.
// Date values may be time.Time, *timestamppb.Timestamp or ISO strings.
type Fields map[string]any

func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Document is a stored goal as delivered by the store.
type Document struct {
	ID     string
	Fields Fields
}

func (d Document) Clone() Document {
	return Document{ID: d.ID, Fields: d.Fields.Clone()}
}

type (
	BatchFunc func(docs []Document)
	ErrorFunc func(err error)
)

// Subscription is a standing query. Close is idempotent and returns once
// no further callbacks can run. It must not be called from a callback.
type Subscription interface {
	Close()
}

type GoalStore interface {
	// Subscribe opens a live query over the goals owned by userID.
	//
	// Every onBatch call carries the complete current result set. Callbacks
	// run on a goroutine owned by the subscription, in delivery order. A
	// failure is reported once through onError and ends the subscription.
	Subscribe(ctx context.Context, userID string, onBatch BatchFunc, onError ErrorFunc) (Subscription, error)

	// Create stores a new goal and returns its store-assigned id.
	Create(ctx context.Context, fields Fields) (string, error)

	// Get returns ErrGoalNotFound if the goal doesn't exist or
	// belongs to another user.
	Get(ctx context.Context, userID, id string) (Document, error)
	List(ctx context.Context, userID string) ([]Document, error)

	// Update merges fields into the goal. It either fully applies or fails.
	Update(ctx context.Context, userID, id string, fields Fields) error
	Remove(ctx context.Context, userID, id string) error
}

// Backend is the persistence underneath a Live store.
type Backend interface {
	List(ctx context.Context, userID string) ([]Document, error)
	Get(ctx context.Context, userID, id string) (Document, error)
	Insert(ctx context.Context, id string, fields Fields) error
	Update(ctx context.Context, userID, id string, fields Fields) error
	Delete(ctx context.Context, userID, id string) error
}

func NewID() string {
	return ulid.Make().String()
}

// UpdatableFields lists the fields a point update may carry, in the order
// SQL backends emit them.
var UpdatableFields = []string{
	models.FieldTitle,
	models.FieldDescription,
	models.FieldDeadline,
	models.FieldStatus,
	models.FieldProgress,
}

func ValidateUpdate(fields Fields) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty update", ErrInvalidField)
	}
	for name := range fields {
		switch name {
		case models.FieldTitle, models.FieldDescription, models.FieldDeadline,
			models.FieldStatus, models.FieldProgress:
		case models.FieldID, models.FieldUserID, models.FieldCreatedAt:
			return fmt.Errorf("%w: %s", ErrImmutableField, name)
		default:
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
	}
	return nil
}

// Column is an encoded field ready to be bound to a SQL statement.
type Column struct {
	Name  string
	Value any
}

var columnNames = map[string]string{
	models.FieldUserID:      "user_id",
	models.FieldTitle:       "title",
	models.FieldDescription: "description",
	models.FieldDeadline:    "deadline",
	models.FieldStatus:      "status",
	models.FieldProgress:    "progress",
	models.FieldCreatedAt:   "created_at",
}

// EncodeColumns converts the given fields into SQL column values in a
// stable order. Fields absent from names are skipped.
func EncodeColumns(fields Fields, names []string) ([]Column, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		v, ok := fields[name]
		if !ok {
			continue
		}
		encoded, err := EncodeValue(name, v)
		if err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: columnNames[name], Value: encoded})
	}
	return cols, nil
}

// EncodeValue normalizes a field value to the representation SQL
// backends store: text for strings, statuses and deadlines, an integer
// for progress and a time for the creation timestamp.
func EncodeValue(name string, v any) (any, error) {
	switch name {
	case models.FieldUserID, models.FieldTitle, models.FieldDescription:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be text", ErrInvalidField, name)
		}
		return s, nil
	case models.FieldDeadline:
		switch val := v.(type) {
		case nil:
			return nil, nil
		case string:
			// Stored as given; unparseable deadlines are tolerated on read.
			return val, nil
		default:
			d := models.ParseDate(val)
			if d == nil {
				return nil, nil
			}
			return models.FormatISODate(*d), nil
		}
	case models.FieldStatus:
		switch val := v.(type) {
		case models.Status:
			if !val.Valid() {
				return nil, fmt.Errorf("%w: %w", ErrInvalidField, models.ErrInvalidStatus)
			}
			return val.String(), nil
		case string:
			s, err := models.ParseStatus(val)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidField, err)
			}
			return s.String(), nil
		default:
			return nil, fmt.Errorf("%w: status must be text", ErrInvalidField)
		}
	case models.FieldProgress:
		p, err := models.ParseProgress(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidField, err)
		}
		return p, nil
	case models.FieldCreatedAt:
		d := models.ParseDate(v)
		if d == nil {
			return time.Now().UTC(), nil
		}
		return d.UTC(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
}

// NativeTimestamp converts a creation time into the store-native
// timestamp representation used by document backends.
func NativeTimestamp(v any) *timestamppb.Timestamp {
	if ts, ok := v.(*timestamppb.Timestamp); ok && ts != nil {
		return ts
	}
	d := models.ParseDate(v)
	if d == nil {
		return timestamppb.Now()
	}
	return timestamppb.New(*d)
}
