package main

import (
	"context"
	"os"

	"github.com/innerpath/scenario-analytics-service/internal/analytics"
	"github.com/innerpath/scenario-analytics-service/internal/config"
	"github.com/innerpath/scenario-analytics-service/internal/dashboard"
	"github.com/innerpath/scenario-analytics-service/internal/eventlog"
	"github.com/innerpath/scenario-analytics-service/internal/httpserver"
	"github.com/innerpath/scenario-analytics-service/internal/logging"
	"github.com/innerpath/scenario-analytics-service/internal/quiz"
	"github.com/innerpath/scenario-analytics-service/internal/session"
	"github.com/innerpath/scenario-analytics-service/internal/store"
)

// main boots the service: config → DB → schema → components → HTTP server.
func main() {
	// Load runtime config from environment; degradations are warned below
	// once the logger exists, only a missing DB_URL is fatal.
	cfg, warns, err := config.Load()
	if err != nil {
		boot := logging.New("info", false)
		boot.Fatal().Err(err).Msg("config load failed")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogConsole)
	for _, w := range warns {
		logger.Warn().Msg(w)
	}

	// Connect to durable storage (Postgres) using a connection pool.
	db, err := store.NewPostgresStore(cfg.DBURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage unavailable")
	}
	defer db.Close()

	// Ensure required tables/indexes exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(); err != nil {
		logger.Fatal().Err(err).Msg("schema bootstrap failed")
	}

	registry := session.NewRegistry(db, logger)
	events := eventlog.New(db, logger)
	engine := quiz.NewEngine(quiz.Config{
		Store:    db,
		Notifier: quiz.LogNotifier{Logger: logger},
		Logger:   logger,
	})
	aggregator := analytics.New(analytics.Config{
		Sessions:  db,
		Events:    events,
		Exclusion: cfg.ExclusionSet(),
		Location:  cfg.Location(),
	})

	refresher, err := dashboard.NewRefresher(dashboard.Config{
		Aggregator: aggregator,
		Logger:     logger,
		CronSpec:   cfg.RefreshCron,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("cron", cfg.RefreshCron).Msg("invalid refresh schedule")
	}
	refresher.Start(context.Background())
	defer refresher.Stop()

	// Build HTTP router (public health + authenticated APIs).
	router := httpserver.NewRouter(cfg, httpserver.Deps{
		Store:      db,
		Registry:   registry,
		Events:     events,
		Quiz:       engine,
		Aggregator: aggregator,
		Refresher:  refresher,
		Logger:     logger,
	})

	logger.Info().Str("addr", cfg.ListenAddr).Msg("server started")
	if err := router.Run(cfg.ListenAddr); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
