package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/metrics"
	"github.com/adanyl0v/smart-goals/internal/services"
	"github.com/adanyl0v/smart-goals/internal/store"
)

type Handler interface {
	HandleLogin(c *gin.Context)
	HandleRefresh(c *gin.Context)
	HandleRegister(c *gin.Context)
	HandleLogout(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)

	HandleCreateGoal(c *gin.Context)
	HandleGetGoals(c *gin.Context)
	HandleGetGoalStats(c *gin.Context)
	HandleUpdateGoal(c *gin.Context)
	HandleSetGoalStatus(c *gin.Context)
	HandleDeleteGoal(c *gin.Context)
	HandleLiveGoals(c *gin.Context)
}

type handlerImpl struct {
	logger   zerolog.Logger
	auth     services.AuthService
	goals    store.GoalStore
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	live     LiveSettings
}

func New(
	logger zerolog.Logger,
	authService services.AuthService,
	goalStore store.GoalStore,
	m *metrics.Metrics,
	live LiveSettings,
) Handler {
	return &handlerImpl{
		logger:  logger,
		auth:    authService,
		goals:   goalStore,
		metrics: m,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: live.HandshakeTimeout,
		},
		live: live,
	}
}

// RegisterRoutes mounts the v1 API on router.
func RegisterRoutes(router gin.IRouter, h Handler) {
	router = router.Group("/api/v1")

	authRouter := router.Group("/auth")
	authRouter.POST("/login", h.HandleLogin)
	authRouter.POST("/refresh", h.HandleRefresh)
	authRouter.POST("/register", h.HandleRegister)
	authRouter.POST("/logout", h.HandleAuthMiddleware, h.HandleLogout)

	goalsRouter := router.Group("/goals", h.HandleAuthMiddleware)
	goalsRouter.POST("", h.HandleCreateGoal)
	goalsRouter.GET("", h.HandleGetGoals)
	goalsRouter.GET("/stats", h.HandleGetGoalStats)
	goalsRouter.GET("/live", h.HandleLiveGoals)
	goalsRouter.PUT("/:id", h.HandleUpdateGoal)
	goalsRouter.PATCH("/:id/status", h.HandleSetGoalStatus)
	goalsRouter.DELETE("/:id", h.HandleDeleteGoal)
}
