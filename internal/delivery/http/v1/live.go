package v1

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/domain/auth"
	"github.com/adanyl0v/smart-goals/internal/domain/goals"
)

type LiveSettings struct {
	HandshakeTimeout time.Duration
	PingTimeout      time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
}

func DefaultLiveSettings() LiveSettings {
	return LiveSettings{
		HandshakeTimeout: 5 * time.Second,
		PingTimeout:      15 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadTimeout:      60 * time.Second,
	}
}

// liveFrame is pushed on every change of the goal state.
type liveFrame struct {
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
	View    viewResponse `json:"view"`
	Stats   goals.Stats  `json:"stats"`
}

func newLiveFrame(snap goals.Snapshot, mode goals.FilterMode) liveFrame {
	return liveFrame{
		Loading: snap.Loading,
		Error:   snap.Error,
		View:    newViewResponse(goals.Project(snap.Goals, mode)),
		Stats:   goals.ComputeStats(snap.Goals),
	}
}

// liveRequest is the only message a client sends.
type liveRequest struct {
	Filter string `json:"filter"`
}

// HandleLiveGoals upgrades to a websocket and streams the goal state of
// the current user. Each connection runs its own sync session.
func (h *handlerImpl) HandleLiveGoals(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	mode, err := goals.ParseFilterMode(c.Query("filter"))
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already answered the request.
		h.logger.Error().
			Err(err).
			Msg("failed to upgrade websocket")
		return
	}
	defer func() { _ = ws.Close() }()

	logger := h.logger.With().
		Str("user_id", userID).
		Logger()
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	state := goals.NewState()
	defer state.Close()
	feed := newLiveFeed(logger, ws, state, mode, h.live)
	unwatch := state.Watch(func(goals.Snapshot) { feed.notify() })
	defer unwatch()

	session := goals.NewSyncSession(logger, h.goals, state, h.metrics)
	err = session.Start(ctx, auth.NewSignedIn(userID))
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to start goal sync session")
		return
	}
	defer session.Stop()

	logger.Info().Msg("opened live goal feed")
	feed.run(ctx, cancel)
	logger.Info().Msg("closed live goal feed")
}

// liveFeed writes frames from one goroutine and reads filter changes from
// another. Notifications coalesce, so a slow client only sees the latest
// state.
type liveFeed struct {
	logger   zerolog.Logger
	ws       *websocket.Conn
	state    *goals.State
	settings LiveSettings
	signal   chan struct{}

	mu   sync.Mutex
	mode goals.FilterMode
}

func newLiveFeed(
	logger zerolog.Logger,
	ws *websocket.Conn,
	state *goals.State,
	mode goals.FilterMode,
	settings LiveSettings,
) *liveFeed {
	f := &liveFeed{
		logger:   logger,
		ws:       ws,
		state:    state,
		settings: settings,
		signal:   make(chan struct{}, 1),
		mode:     mode,
	}
	f.notify()
	return f
}

func (f *liveFeed) notify() {
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *liveFeed) filter() goals.FilterMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *liveFeed) setFilter(mode goals.FilterMode) {
	f.mu.Lock()
	f.mode = mode
	f.mu.Unlock()
	f.notify()
}

// run blocks until the client goes away or ctx is done.
func (f *liveFeed) run(ctx context.Context, cancel context.CancelFunc) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		f.writeLoop(ctx)
	}()

	f.readLoop(ctx)
	cancel()
	wg.Wait()
}

func (f *liveFeed) writeLoop(ctx context.Context) {
	ping := time.NewTicker(f.settings.PingTimeout)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = f.ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(f.settings.WriteTimeout),
			)
			return
		case <-f.signal:
			frame := newLiveFrame(f.state.Snapshot(), f.filter())
			_ = f.ws.SetWriteDeadline(time.Now().Add(f.settings.WriteTimeout))
			if err := f.ws.WriteJSON(frame); err != nil {
				// A write deadline can't be recovered from.
				f.logger.Error().
					Err(err).
					Msg("failed to write live frame")
				return
			}
		case <-ping.C:
			err := f.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(f.settings.WriteTimeout))
			if err != nil {
				f.logger.Debug().
					Err(err).
					Msg("failed to ping live client")
				return
			}
		}
	}
}

func (f *liveFeed) readLoop(ctx context.Context) {
	extend := func() {
		_ = f.ws.SetReadDeadline(time.Now().Add(f.settings.ReadTimeout))
	}
	extend()
	f.ws.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	// ReadJSON unblocks when the write loop closes the connection.
	go func() {
		<-ctx.Done()
		_ = f.ws.SetReadDeadline(time.Now())
	}()

	for {
		var req liveRequest
		err := f.ws.ReadJSON(&req)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				f.logger.Debug().
					Err(err).
					Msg("live client read failed")
			}
			return
		}
		extend()

		mode, err := goals.ParseFilterMode(req.Filter)
		if err != nil {
			f.logger.Warn().
				Err(err).
				Str("filter", req.Filter).
				Msg("ignoring unknown filter")
			continue
		}
		f.setFilter(mode)
	}
}

