package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dmwire-server/internal/auth"
	"github.com/vovakirdan/dmwire-server/internal/config"
	"github.com/vovakirdan/dmwire-server/internal/core"
	"github.com/vovakirdan/dmwire-server/internal/store"
)

// NewServer builds the HTTP server: health probe, websocket endpoint
// and the authenticated message query path.
func NewServer(hub *core.Hub, gate *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(LoggerMiddleware(logger), gin.Recovery())

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, gate, st, cfg.AdmissionTimeout, cfg.EventBuffer, logger)))

	handlers := NewAPIHandlers(st, logger)
	api := router.Group("/api", AuthMiddleware(gate, logger))
	api.GET("/messages", handlers.ListMessages)
	api.GET("/users/:username", handlers.GetUser)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
