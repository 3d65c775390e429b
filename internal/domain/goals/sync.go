package goals

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/domain/auth"
	"github.com/adanyl0v/smart-goals/internal/metrics"
	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
)

// User-facing messages stored in State.Error.
const (
	MessageAuthNotReady = "Authentication not ready"
	MessageLoadFailed   = "Failed to load goals. Please try again."
)

var (
	ErrSessionStarted = errors.New("sync session already started")
	ErrSessionStopped = errors.New("sync session stopped")
)

// Subscriber is the part of the goal store a sync session needs.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string, onBatch store.BatchFunc, onError store.ErrorFunc) (store.Subscription, error)
}

// SyncSession keeps a State in line with the live goal set of the signed
// in user. Every mutation of the state happens under the session mutex
// and is skipped once Stop has been called.
type SyncSession struct {
	logger  zerolog.Logger
	store   Subscriber
	state   *State
	metrics *metrics.Metrics
	now     func() time.Time

	mu          sync.Mutex
	started     bool
	stopped     bool
	resolved    bool
	cancel      context.CancelFunc
	unwatchAuth func()
	sub         store.Subscription
	// gen identifies the current subscription; callbacks of older
	// subscriptions are dropped.
	gen    uint64
	userID string

	ready     chan struct{}
	readyOnce sync.Once
}

func NewSyncSession(
	logger zerolog.Logger,
	st Subscriber,
	state *State,
	m *metrics.Metrics,
) *SyncSession {
	return &SyncSession{
		logger:  logger,
		store:   st,
		state:   state,
		metrics: m,
		now:     time.Now,
		ready:   make(chan struct{}),
	}
}

func (s *SyncSession) State() *State {
	return s.state
}

// Ready is closed once the session has settled: subscribed, found no
// user, failed, or was stopped.
func (s *SyncSession) Ready() <-chan struct{} {
	return s.ready
}

// Start marks the state as loading and resolves the user in the
// background. It returns immediately.
func (s *SyncSession) Start(ctx context.Context, resolver auth.Resolver) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSessionStopped
	}
	if s.started {
		return ErrSessionStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.state.begin()

	go s.initialize(ctx, resolver)
	return nil
}

// Stop cancels the live subscription. It is safe to call more than once
// and before Start; no batch is applied after it returns.
func (s *SyncSession) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, unwatch, sub := s.cancel, s.unwatchAuth, s.sub
	s.cancel, s.unwatchAuth, s.sub = nil, nil, nil
	userID := s.userID
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unwatch != nil {
		unwatch()
	}
	if sub != nil {
		sub.Close()
	}
	s.markReady()

	s.logger.Debug().
		Str("user_id", userID).
		Msg("stopped goal sync session")
}

func (s *SyncSession) initialize(ctx context.Context, resolver auth.Resolver) {
	defer s.markReady()

	err := resolver.Ready(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().
			Err(err).
			Msg("failed to resolve auth state")
		s.metrics.SyncError(metrics.SyncErrorAuth)

		s.mu.Lock()
		if !s.stopped {
			s.state.fail(MessageAuthNotReady)
		}
		s.mu.Unlock()
		return
	}

	unwatch := resolver.Subscribe(func(string, bool) {
		s.follow(ctx, resolver)
	})
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		unwatch()
		return
	}
	s.unwatchAuth = unwatch
	s.mu.Unlock()

	s.follow(ctx, resolver)
}

// follow points the session at the resolver's current user. Switching
// users drops the previous user's goals before the new batch arrives.
func (s *SyncSession) follow(ctx context.Context, resolver auth.Resolver) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}

	userID, ok := resolver.CurrentUser()
	if !ok {
		userID = ""
	}
	if s.resolved && userID == s.userID {
		s.mu.Unlock()
		return
	}
	s.resolved = true

	old := s.sub
	s.sub = nil
	s.gen++
	gen := s.gen
	s.userID = userID

	if userID == "" {
		s.state.reset(false)
		s.logger.Info().Msg("no signed in user, goal sync idle")
	} else {
		if old != nil {
			s.state.reset(true)
		}
		sub, err := s.store.Subscribe(ctx, userID, s.batchHandler(gen), s.errorHandler(gen))
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("user_id", userID).
				Msg("failed to subscribe to goals")
			s.metrics.SyncError(metrics.SyncErrorSubscription)
			s.state.fail(MessageLoadFailed)
		} else {
			s.sub = sub
			s.logger.Info().
				Str("user_id", userID).
				Msg("subscribed to goals")
		}
	}
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

func (s *SyncSession) batchHandler(gen uint64) store.BatchFunc {
	return func(docs []store.Document) {
		now := s.now()
		goals := make([]models.Goal, 0, len(docs))
		for _, doc := range docs {
			goals = append(goals, FromDocument(s.logger, doc, now))
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.stopped || gen != s.gen {
			return
		}
		s.state.replace(goals)
		s.metrics.SyncBatch()
		s.logger.Debug().
			Int("count", len(goals)).
			Str("user_id", s.userID).
			Msg("applied goal batch")
	}
}

func (s *SyncSession) errorHandler(gen uint64) store.ErrorFunc {
	return func(err error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.stopped || gen != s.gen {
			return
		}
		s.logger.Error().
			Err(err).
			Str("user_id", s.userID).
			Msg("goal subscription failed")
		s.metrics.SyncError(metrics.SyncErrorSubscription)
		s.state.fail(MessageLoadFailed)
	}
}

func (s *SyncSession) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}
