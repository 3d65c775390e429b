package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestStatusWireNames(t *testing.T) {
	for _, s := range Statuses {
		parsed, err := ParseStatus(s.String())
		assert.Equal(t, nil, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("archived")
	assert.Equal(t, true, errors.Is(err, ErrInvalidStatus))
}

func TestStatusRankFollowsWorkflow(t *testing.T) {
	assert.Equal(t, 0, StatusNotStarted.Rank())
	assert.Equal(t, 1, StatusInProgress.Rank())
	assert.Equal(t, 2, StatusCompleted.Rank())
}

func TestStatusProgressCoupling(t *testing.T) {
	assert.Equal(t, 100, StatusCompleted.ProgressFor(0))
	assert.Equal(t, 100, StatusCompleted.ProgressFor(42))
	assert.Equal(t, 42, StatusInProgress.ProgressFor(42))
	// Reaching 100% never implies completion.
	assert.Equal(t, 100, StatusNotStarted.ProgressFor(100))
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Status Status `json:"status"`
	}{StatusInProgress})
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"status":"in-progress"}`, string(b))

	var out struct {
		Status Status `json:"status"`
	}
	err = json.Unmarshal([]byte(`{"status":"completed"}`), &out)
	assert.Equal(t, nil, err)
	assert.Equal(t, StatusCompleted, out.Status)

	err = json.Unmarshal([]byte(`{"status":"done"}`), &out)
	assert.NotEqual(t, nil, err)
}

func TestParseProgress(t *testing.T) {
	cases := []struct {
		in   any
		want int
		ok   bool
	}{
		{in: 40, want: 40, ok: true},
		{in: int64(100), want: 100, ok: true},
		{in: 12.6, want: 13, ok: true},
		{in: " 70 ", want: 70, ok: true},
		{in: nil, want: 0, ok: true},
		{in: 101, ok: false},
		{in: -1, ok: false},
		{in: "lots", ok: false},
		{in: []int{1}, ok: false},
	}
	for _, c := range cases {
		got, err := ParseProgress(c.in)
		if !c.ok {
			assert.Equal(t, true, errors.Is(err, ErrInvalidProgress))
			continue
		}
		assert.Equal(t, nil, err)
		assert.Equal(t, c.want, got)
	}
}
