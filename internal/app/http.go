package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/config"
	v1 "github.com/adanyl0v/smart-goals/internal/delivery/http/v1"
	"github.com/adanyl0v/smart-goals/internal/services"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(requestLogger(componentLogger("http")))
	router.Use(gin.Recovery())
	registerRoutes(router)

	// Live feeds are hijacked connections; Shutdown does not wait for
	// them, so they follow the base context instead.
	baseCtx, stopLiveFeeds := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:        net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler:     router,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(stopLiveFeeds)

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	jwtCfg := config.Global().JWT
	authService := services.NewAuthService(
		componentLogger("auth"),
		globalPostgresPool,
		services.NewTokenIssuer(
			jwtCfg.Issuer,
			[]byte(jwtCfg.SigningKey),
			jwtCfg.AccessTokenTTL,
			jwtCfg.RefreshTokenTTL,
		),
	)
	v1Handler := v1.New(
		componentLogger("api"),
		authService,
		globalGoalStore,
		globalMetrics,
		v1.DefaultLiveSettings(),
	)
	v1.RegisterRoutes(router, v1Handler)

	router.GET("/metrics", gin.WrapH(globalMetrics.Handler()))
}

// requestLogger logs every request once it completes. Websocket upgrades
// are logged when the feed closes.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("handled request")
	}
}
