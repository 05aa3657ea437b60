package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/automaxprocs/maxprocs"

	"pdfstudio/internal/config"
	"pdfstudio/internal/http/server"
	"pdfstudio/internal/infra/cache"
	"pdfstudio/internal/infra/kvstore"
	"pdfstudio/internal/infra/logging"
	"pdfstudio/internal/infra/postgres"
	"pdfstudio/internal/render"
	"pdfstudio/internal/tokens"
)

func main() {
	cfg := config.Load()
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logging.Debug("maxprocs", "message", format, "args", args)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiterStore := kvstore.New(kvstore.RedisConfig{Addr: cfg.Cache.RedisHost, DB: cfg.Cache.RateLimitDB})
	sessionStore := kvstore.New(kvstore.RedisConfig{Addr: cfg.Cache.RedisHost, DB: cfg.Cache.SessionDB})
	rdb := cache.NewRedisClient(cfg.Cache.RedisHost, cfg.Cache.PDFCacheDB)
	if rdb != nil {
		defer rdb.Close()
	}

	var tokenCache *tokens.Cache
	if cfg.Auth.Enabled {
		tokenCache = startTokenReloader(ctx, cfg)
	}

	renderer, err := render.New(cfg)
	if err != nil {
		logging.Error("Unknown PDF engine, using fpdf", "engine", cfg.PDF.Engine, "error", err)
		renderer = render.NewTreeRenderer()
	}
	if cr, ok := renderer.(*render.ChromeRenderer); ok {
		defer cr.Close()
	}

	app := server.New(server.Deps{
		Config:   cfg,
		Renderer: renderer,
		Redis:    rdb,
		Store:    limiterStore,
		Sessions: sessionStore,
		Tokens:   tokenCache,
	})

	idleConnsClosed := make(chan struct{})
	startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
}

// startTokenReloader loads API keys from Postgres and refreshes them in the
// background. Until the first successful load every keyed request gets 503.
func startTokenReloader(ctx context.Context, cfg config.Config) *tokens.Cache {
	tokenCache := tokens.NewCache()

	dsn, err := postgres.DSN(cfg.Auth.Postgres)
	if err != nil {
		logging.Error("Invalid token store settings", "error", err)
		return tokenCache
	}
	repo := postgres.NewTokenRepository(postgres.NewDB(), dsn)
	reloader := tokens.NewReloader(repo, tokenCache, cfg.Auth.TokenReloadInterval)
	if err := reloader.LoadOnce(ctx); err != nil {
		logging.Error("Failed to load API tokens", "error", err)
	}
	reloader.Start(ctx)
	return tokenCache
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		logging.Info("Server listening", "addr", cfg.Server.Host+cfg.Server.Port, "engine", cfg.PDF.Engine)
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint
	signal.Stop(sigint)

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}
