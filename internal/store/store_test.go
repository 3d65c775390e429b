package store

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/adanyl0v/smart-goals/internal/models"
)

func TestEncodeColumnsKeepsOrder(t *testing.T) {
	cols, err := EncodeColumns(Fields{
		models.FieldProgress: "55",
		models.FieldTitle:    "Ship it",
		models.FieldStatus:   models.StatusInProgress,
	}, UpdatableFields)
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(cols))
	assert.Equal(t, "title", cols[0].Name)
	assert.Equal(t, "status", cols[1].Name)
	assert.Equal(t, "in-progress", cols[1].Value)
	assert.Equal(t, "progress", cols[2].Name)
	assert.Equal(t, 55, cols[2].Value)
}

func TestEncodeDeadline(t *testing.T) {
	v, err := EncodeValue(models.FieldDeadline, time.Date(2024, time.June, 1, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, nil, err)
	assert.Equal(t, "2024-06-01", v)

	v, err = EncodeValue(models.FieldDeadline, "someday")
	assert.Equal(t, nil, err)
	assert.Equal(t, "someday", v)

	v, err = EncodeValue(models.FieldDeadline, nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, v == nil)
}

func TestEncodeRejectsBadValues(t *testing.T) {
	_, err := EncodeValue(models.FieldTitle, 7)
	assert.Equal(t, true, errors.Is(err, ErrInvalidField))

	_, err = EncodeValue(models.FieldProgress, 140)
	assert.Equal(t, true, errors.Is(err, models.ErrInvalidProgress))

	_, err = EncodeValue("owner", "x")
	assert.Equal(t, true, errors.Is(err, ErrUnknownField))
}

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewID()
		_, dup := seen[id]
		assert.Equal(t, false, dup)
		seen[id] = struct{}{}
	}
}
