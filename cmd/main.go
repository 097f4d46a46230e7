package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuttalk/gateway/internal/admin"
	"github.com/kuttalk/gateway/internal/cache"
	"github.com/kuttalk/gateway/internal/config"
	"github.com/kuttalk/gateway/internal/db"
	"github.com/kuttalk/gateway/internal/gateway"
	"github.com/kuttalk/gateway/internal/logger"
	"github.com/kuttalk/gateway/internal/maintenance"
	"github.com/kuttalk/gateway/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)
	log := logger.Base()
	log.Info().Msg("Starting KUT-Talk chat gateway...")

	// Database
	database, err := db.NewDatabase(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to database")
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Error().Err(err).Msg("Failed to run migrations")
		os.Exit(1)
	}

	sessionDB := db.NewSessionDB(database.DB())
	chatDB := db.NewChatDB(database.DB())

	// Optional Redis session cache
	redisCache, err := cache.NewCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		Enabled:  cfg.CacheEnabled,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without session cache")
		redisCache, _ = cache.NewCache(cache.Config{Enabled: false})
	} else if cfg.CacheEnabled {
		log.Info().Msg("Redis session cache enabled")
	}
	defer redisCache.Close()

	var sessions gateway.SessionStore = sessionDB
	if redisCache.Enabled() {
		sessions = cache.NewSessions(sessionDB, redisCache, cfg.SessionTTL)
	}

	// Metrics
	m := metrics.New()

	// Gateway
	srv := gateway.NewServer(sessions, chatDB, m, gateway.Options{
		PingInterval: cfg.PingInterval,
		PongTimeout:  cfg.PongTimeout,
	})

	// Admin HTTP server
	adminSrv := admin.New(fmt.Sprintf(":%d", cfg.AdminPort), database, chatDB, srv.Registry(), m)
	adminSrv.Start()

	// Scheduled maintenance
	janitor, err := maintenance.New(sessionDB, cfg.SessionPurgeInterval)
	if err != nil {
		log.Error().Err(err).Msg("Failed to schedule maintenance")
		os.Exit(1)
	}
	janitor.Start()

	// Serve until signalled
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(fmt.Sprintf(":%d", cfg.WSPort))
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Gateway listener failed")
			os.Exit(1)
		}
		return
	}

	srv.Shutdown()
	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := adminSrv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Admin server shutdown failed")
	}

	log.Info().Msg("Gateway stopped")
}
