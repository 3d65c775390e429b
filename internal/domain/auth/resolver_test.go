package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestReadyWaitsForSettle(t *testing.T) {
	p := NewProvider()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, true, errors.Is(p.Ready(ctx), context.DeadlineExceeded))

	p.Settle("")
	assert.Equal(t, nil, p.Ready(context.Background()))
	_, ok := p.CurrentUser()
	assert.Equal(t, false, ok)
}

func TestSignedIn(t *testing.T) {
	p := NewSignedIn("alice")
	assert.Equal(t, nil, p.Ready(context.Background()))

	userID, ok := p.CurrentUser()
	assert.Equal(t, true, ok)
	assert.Equal(t, "alice", userID)
}

func TestFail(t *testing.T) {
	p := NewProvider()
	p.Fail(nil)
	assert.Equal(t, true, errors.Is(p.Ready(context.Background()), ErrNotReady))
}

func TestSubscribeReportsChangesOnly(t *testing.T) {
	p := NewSignedIn("alice")

	var got []string
	unsubscribe := p.Subscribe(func(userID string, ok bool) {
		if !ok {
			userID = "<none>"
		}
		got = append(got, userID)
	})

	p.SignIn("alice")
	p.SignIn("bob")
	p.SignOut()
	unsubscribe()
	p.SignIn("carol")

	assert.Equal(t, []string{"bob", "<none>"}, got)
}
