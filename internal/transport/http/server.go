package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/sidestacker-server/internal/auth"
	"github.com/vovakirdan/sidestacker-server/internal/config"
	"github.com/vovakirdan/sidestacker-server/internal/core"
	"github.com/vovakirdan/sidestacker-server/internal/store"
)

// NewServer builds the HTTP server with all routes.
func NewServer(hub *core.Hub, authService *auth.Service, matches store.MatchStore, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, authService, matches, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter mounts the websocket endpoint on a plain mux and everything
// else on the gin engine. The upgrade must not pass through gin, whose
// response writer refuses to hijack once the 101 status is written.
func NewRouter(hub *core.Hub, authService *auth.Service, matches store.MatchStore, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, authService, cfg, logger))
	mux.Handle("/", newEngine(hub, authService, matches, cfg, logger))
	return mux
}

// newEngine builds the gin engine. authService and matches may be nil, in
// which case the account and lobby endpoints are not mounted.
func newEngine(hub *core.Hub, authService *auth.Service, matches store.MatchStore, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, hub.Metrics().Snapshot())
	})

	if authService == nil {
		return router
	}

	api := router.Group("/api")
	apiHandlers := NewAPIHandlers(authService, logger)
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	api.POST("/guest", apiHandlers.GuestLogin)

	if matches != nil {
		matchHandlers := NewMatchHandlers(matches, hub, cfg, logger)
		api.POST("/matches", AuthMiddleware(authService, logger), matchHandlers.CreateMatch)
		api.GET("/matches/:id", matchHandlers.GetMatch)
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
