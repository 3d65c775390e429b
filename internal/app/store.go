package app

import (
	"context"
	"io"
	"sync"

	"github.com/adanyl0v/smart-goals/internal/config"
	"github.com/adanyl0v/smart-goals/internal/metrics"
	"github.com/adanyl0v/smart-goals/internal/store"
	"github.com/adanyl0v/smart-goals/internal/store/memory"
	"github.com/adanyl0v/smart-goals/internal/store/postgres"
	"github.com/adanyl0v/smart-goals/internal/store/sqlite"
)

var (
	globalMetrics   *metrics.Metrics
	globalGoalStore *store.Live

	goalStoreCloser  io.Closer
	stopListener     context.CancelFunc
	listenerFinished sync.WaitGroup
)

func InitMetrics() {
	globalMetrics = metrics.New()
	globalLogger.Info().Msg("initialized metrics")
}

// MustOpenGoalStore opens the configured goal backend. The postgres
// backend also starts a listener so writes of other instances reach local
// subscriptions.
func MustOpenGoalStore() {
	cfg := config.Global().Store
	logger := componentLogger("goal_store")
	hub := store.NewHub(logger, globalMetrics)

	var backend store.Backend
	switch cfg.Driver {
	case config.StoreDriverMemory:
		backend = memory.NewBackend()
	case config.StoreDriverSQLite:
		b, err := sqlite.Open(logger, cfg.SQLitePath)
		if err != nil {
			globalLogger.Error().
				Err(err).
				Str("path", cfg.SQLitePath).
				Msg("failed to open sqlite goal store")
			panic(err)
		}
		goalStoreCloser = b
		backend = b
	case config.StoreDriverPostgres:
		b := postgres.NewBackend(logger, globalPostgresPool)
		ctx, cancel := context.WithTimeout(context.Background(), config.Global().Postgres.PingTimeout)
		defer cancel()

		err := b.EnsureSchema(ctx)
		if err != nil {
			globalLogger.Error().
				Err(err).
				Msg("failed to apply goal schema")
			panic(err)
		}
		backend = b

		var listenCtx context.Context
		listenCtx, stopListener = context.WithCancel(context.Background())
		listener := postgres.NewListener(logger, globalPostgresPool, hub, globalMetrics)
		listenerFinished.Add(1)
		go func() {
			defer listenerFinished.Done()
			// Failures are logged and counted by the listener.
			_ = listener.Run(listenCtx)
		}()
	}

	globalGoalStore = store.NewLive(logger, backend, hub, globalMetrics)
	globalLogger.Info().
		Str("driver", cfg.Driver).
		Msg("opened goal store")
}

func CloseGoalStore() {
	if stopListener != nil {
		stopListener()
		listenerFinished.Wait()
	}
	if goalStoreCloser != nil {
		err := goalStoreCloser.Close()
		if err != nil {
			globalLogger.Error().
				Err(err).
				Msg("failed to close goal store")
		}
	}
	globalLogger.Info().Msg("closed goal store")
}
