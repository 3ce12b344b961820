// Package app wires configuration, storage, providers, and the HTTP
// server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/config"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/db"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/generation"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/http/api"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/logging"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/provider"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/ratelimit"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/settings"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/usage"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/util"
	log "github.com/sirupsen/logrus"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the API server and blocks until ctx is cancelled.
func RunServer(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Log.Level, cfg.Log.File)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		log.WithError(errRefresh).Warn("load settings snapshot failed")
	}

	var redisStore *ratelimit.RedisStore
	if cfg.Redis.URL != "" {
		store, errRedis := ratelimit.NewRedisStore(cfg.Redis.URL)
		if errRedis != nil {
			log.WithError(errRedis).Warn("redis unavailable, quota counters are process-local")
		} else {
			redisStore = store
			defer func() { _ = redisStore.Close() }()
		}
	}

	var redisBackend ratelimit.Store
	if redisStore != nil {
		redisBackend = redisStore
	}
	governor := ratelimit.NewGovernor(redisBackend, ratelimit.NewDBTierSource(conn), ratelimit.Limits{
		FreeDaily:       cfg.Quota.FreeDailyLimit,
		PremiumDaily:    cfg.Quota.PremiumDailyLimit,
		AnonymousHourly: cfg.Quota.AnonymousHourlyLimit,
	})

	primary := generation.Target{
		Client: provider.NewGeminiClient(provider.GeminiConfig{
			APIKey:  cfg.Provider.GeminiAPIKey,
			BaseURL: cfg.Provider.GeminiBaseURL,
		}),
		Model: cfg.Provider.PrimaryModel,
	}
	fallback := generation.Target{
		Client: provider.NewOpenRouterClient(provider.OpenRouterConfig{
			APIKey: cfg.Provider.OpenRouterAPIKey,
			URL:    cfg.Provider.OpenRouterURL,
		}),
		Model: cfg.Provider.FallbackModel,
	}
	svc := generation.NewService(primary, fallback, 0)

	recorder := usage.NewRecorder(conn)
	defer recorder.Close()

	log.WithFields(log.Fields{
		"primary_model":  cfg.Provider.PrimaryModel,
		"fallback_model": cfg.Provider.FallbackModel,
		"gemini_key":     util.HideAPIKey(cfg.Provider.GeminiAPIKey),
		"openrouter_key": util.HideAPIKey(cfg.Provider.OpenRouterAPIKey),
	}).Info("generation providers configured")

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	api.RegisterRoutes(engine, conn, cfg, governor, svc, recorder)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if errServe := server.ListenAndServe(); errServe != nil && errServe != http.ErrServerClosed {
			errCh <- errServe
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("http shutdown failed")
		}
		return <-errCh
	case errServe := <-errCh:
		return errServe
	}
}
