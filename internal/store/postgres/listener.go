package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/metrics"
	"github.com/adanyl0v/smart-goals/internal/store"
)

const closeTimeout = 5 * time.Second

// Notifier is the part of store.Hub the listener drives.
type Notifier interface {
	Notify(userID string)
}

var _ Notifier = (*store.Hub)(nil)

// Listener forwards goal change notifications written by any process to
// the local subscriptions of the affected user.
type Listener struct {
	logger   zerolog.Logger
	pgPool   *pgxpool.Pool
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewListener(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	notifier Notifier,
	m *metrics.Metrics,
) *Listener {
	return &Listener{
		logger:   logger,
		pgPool:   pgPool,
		notifier: notifier,
		metrics:  m,
	}
}

// Run holds a dedicated connection until ctx is done. It returns nil on
// cancellation and the connection error otherwise; there is no retry, so
// a failure is counted as a listener sync error.
func (l *Listener) Run(ctx context.Context) error {
	err := l.listen(ctx)
	if err != nil {
		l.metrics.SyncError(metrics.SyncErrorListener)
		l.logger.Error().
			Err(err).
			Msg("goal change listener failed")
	}
	return err
}

func (l *Listener) listen(ctx context.Context) error {
	pooled, err := l.pgPool.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	// The connection leaves the pool for good; closing it drops the
	// LISTEN registration with it.
	conn := pooled.Hijack()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{NotifyChannel}.Sanitize())
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", NotifyChannel, err)
	}
	l.logger.Info().
		Str("channel", NotifyChannel).
		Msg("listening for goal changes")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				l.logger.Info().Msg("stopped listening for goal changes")
				return nil
			}
			return fmt.Errorf("wait for goal notification: %w", err)
		}
		if n.Payload == "" {
			continue
		}
		l.logger.Debug().
			Str("user_id", n.Payload).
			Uint32("pid", n.PID).
			Msg("received goal change")
		l.notifier.Notify(n.Payload)
	}
}
