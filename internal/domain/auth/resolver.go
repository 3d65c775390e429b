// Package auth defines how the goal core learns who the current user is.
package auth

import (
	"context"
	"errors"
	"sync"
)

var ErrNotReady = errors.New("authentication not ready")

// Resolver reports the authenticated user once the auth state is known.
type Resolver interface {
	// Ready blocks until the auth state is settled or ctx is done.
	// A non-nil error means the state could not be determined.
	Ready(ctx context.Context) error

	// CurrentUser returns the signed in user id, if any.
	CurrentUser() (userID string, ok bool)

	// Subscribe calls fn on every change of the signed in user until the
	// returned function is called.
	Subscribe(fn func(userID string, ok bool)) (unsubscribe func())
}

// Provider is an in-process Resolver. It starts unsettled; the first
// Settle, SignIn, SignOut or Fail call settles it.
type Provider struct {
	mu        sync.Mutex
	settled   chan struct{}
	isSettled bool
	err       error
	userID    string
	nextID    int
	listeners map[int]func(string, bool)
}

var _ Resolver = (*Provider)(nil)

func NewProvider() *Provider {
	return &Provider{
		settled:   make(chan struct{}),
		listeners: make(map[int]func(string, bool)),
	}
}

// NewSignedIn returns a settled provider for userID.
func NewSignedIn(userID string) *Provider {
	p := NewProvider()
	p.SignIn(userID)
	return p
}

func (p *Provider) Ready(ctx context.Context) error {
	select {
	case <-p.settled:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Provider) CurrentUser() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userID, p.userID != ""
}

func (p *Provider) Subscribe(fn func(string, bool)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Settle marks the auth state as known with the given user, or with no
// user when userID is empty.
func (p *Provider) Settle(userID string) {
	p.set(userID, nil)
}

func (p *Provider) SignIn(userID string) {
	p.set(userID, nil)
}

func (p *Provider) SignOut() {
	p.set("", nil)
}

// Fail settles the provider with an error; Ready returns it from now on.
func (p *Provider) Fail(err error) {
	if err == nil {
		err = ErrNotReady
	}
	p.set("", err)
}

func (p *Provider) set(userID string, err error) {
	p.mu.Lock()
	changed := p.userID != userID
	p.userID = userID
	p.err = err
	if !p.isSettled {
		p.isSettled = true
		close(p.settled)
	}
	listeners := make([]func(string, bool), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range listeners {
		fn(userID, userID != "")
	}
}
