package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/metrics"
)

type ListFunc func(ctx context.Context, userID string) ([]Document, error)

// Hub tracks live subscriptions per user. Notify marks every subscription
// of a user dirty; each subscription re-lists on its own goroutine, so a
// burst of changes collapses into at most one extra batch.
type Hub struct {
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	subs map[string]map[*hubSubscription]struct{}
}

func NewHub(logger zerolog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: m,
		subs:    make(map[string]map[*hubSubscription]struct{}),
	}
}

// Subscribe registers a subscription and schedules its initial batch.
// Callbacks are never invoked before Subscribe returns.
func (h *Hub) Subscribe(
	ctx context.Context,
	userID string,
	list ListFunc,
	onBatch BatchFunc,
	onError ErrorFunc,
) Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &hubSubscription{
		hub:    h,
		userID: userID,
		signal: make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	users, ok := h.subs[userID]
	if !ok {
		users = make(map[*hubSubscription]struct{})
		h.subs[userID] = users
	}
	users[sub] = struct{}{}
	h.mu.Unlock()

	h.metrics.SubscriptionOpened()
	h.logger.Debug().
		Str("user_id", userID).
		Msg("opened goal subscription")

	sub.notify()
	go sub.run(ctx, list, onBatch, onError)
	return sub
}

// Notify schedules a fresh batch for every subscription of userID.
func (h *Hub) Notify(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[userID] {
		sub.notify()
	}
}

// Subscribers returns the number of open subscriptions for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

func (h *Hub) remove(sub *hubSubscription) {
	h.mu.Lock()
	users, ok := h.subs[sub.userID]
	if ok {
		if _, found := users[sub]; found {
			delete(users, sub)
			if len(users) == 0 {
				delete(h.subs, sub.userID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if ok {
		h.metrics.SubscriptionClosed()
		h.logger.Debug().
			Str("user_id", sub.userID).
			Msg("closed goal subscription")
	}
}

type hubSubscription struct {
	hub    *Hub
	userID string
	signal chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *hubSubscription) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *hubSubscription) run(ctx context.Context, list ListFunc, onBatch BatchFunc, onError ErrorFunc) {
	defer close(s.done)
	defer s.hub.remove(s)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.signal:
		}

		docs, err := list(ctx, s.userID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.hub.logger.Error().
				Err(err).
				Str("user_id", s.userID).
				Msg("failed to list goals for subscription")
			onError(err)
			return
		}
		onBatch(docs)
	}
}

func (s *hubSubscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
