// Package admin serves the out-of-band HTTP surface of the gateway: health
// and readiness probes, live connection stats, the public room listing used
// by the frontend lobby, and Prometheus metrics.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kuttalk/gateway/internal/db"
	"github.com/kuttalk/gateway/internal/gateway"
	"github.com/kuttalk/gateway/internal/logger"
	"github.com/kuttalk/gateway/internal/metrics"
)

// Server is the admin HTTP server.
type Server struct {
	httpServer *http.Server
}

// New builds the admin server.
func New(addr string, database *db.Database, chat *db.ChatDB, registry *gateway.Registry, m *metrics.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.DB().PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"connections": registry.Len(),
		})
	})

	router.GET("/rooms", func(c *gin.Context) {
		rooms, err := chat.ListPublicRooms(c.Request.Context())
		if err != nil {
			logger.Component("admin").Error().Err(err).Msg("Room listing failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
			return
		}
		if rooms == nil {
			rooms = []*db.Room{}
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	})

	router.GET("/metrics", gin.WrapH(m.Handler()))

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	go func() {
		logger.Component("admin").Info().Str("addr", s.httpServer.Addr).Msg("Admin server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Component("admin").Error().Err(err).Msg("Admin server failed")
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
