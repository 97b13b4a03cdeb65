package http

import (
	"github.com/dkeye/meet/internal/config"
	transport "github.com/dkeye/meet/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RequestIDMiddleware tags every control request so log lines can be joined.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, h *transport.Handlers) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	api := r.Group("/api")
	api.GET("/roster", h.Roster)
	api.GET("/roster/unpinned", h.Unpinned)
	api.GET("/state", h.State)
	api.POST("/pin/local", h.PinLocal)
	api.POST("/pin/:id", h.PinRemote)
	api.POST("/mic", h.Microphone)
	api.POST("/camera", h.Camera)
	api.POST("/leave", h.Leave)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
