package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/innerpath/scenario-analytics-service/internal/analytics"
	"github.com/innerpath/scenario-analytics-service/internal/auth"
	"github.com/innerpath/scenario-analytics-service/internal/config"
	"github.com/innerpath/scenario-analytics-service/internal/dashboard"
	"github.com/innerpath/scenario-analytics-service/internal/eventlog"
	"github.com/innerpath/scenario-analytics-service/internal/handlers"
	"github.com/innerpath/scenario-analytics-service/internal/quiz"
	"github.com/innerpath/scenario-analytics-service/internal/session"
	"github.com/innerpath/scenario-analytics-service/internal/store"
)

// Deps bundles everything the router serves.
type Deps struct {
	Store      *store.PostgresStore
	Registry   *session.Registry
	Events     *eventlog.Log
	Quiz       *quiz.Engine
	Aggregator *analytics.Aggregator
	Refresher  *dashboard.Refresher
	Logger     zerolog.Logger
}

// NewRouter wires public endpoints and authenticated APIs.
// Public: /health, /ready
// Authenticated: sessions, events, quiz, dashboard
func NewRouter(cfg config.Config, d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := d.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Auth group identifies the caller via X-API-Key.
	authGroup := r.Group("/")
	authGroup.Use(auth.APIKeyMiddleware(cfg.APIKeys))

	loc := cfg.Location()
	handlers.RegisterSessionRoutes(authGroup, d.Registry, d.Events, loc, d.Logger)
	handlers.RegisterEventRoutes(authGroup, d.Events, loc)
	handlers.RegisterQuizRoutes(authGroup, d.Registry, d.Quiz, d.Events, d.Logger)
	handlers.RegisterDashboardRoutes(authGroup, d.Aggregator, d.Refresher)

	return r
}
