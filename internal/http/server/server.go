// Package server assembles the fiber application.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/session"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	"github.com/redis/go-redis/v9"

	"pdfstudio/internal/config"
	"pdfstudio/internal/http/handlers"
	"pdfstudio/internal/http/middleware"
	"pdfstudio/internal/infra/cache"
	"pdfstudio/internal/infra/logging"
	"pdfstudio/internal/render"
	"pdfstudio/internal/tokens"
	"pdfstudio/internal/viewer"
)

// Deps are the collaborators of the application. Nil fields fall back to
// in-process defaults: the engine named by the config, memory storage, no
// PDF cache and no API key auth. Store backs the rate limiters; Sessions
// backs viewer sessions and their documents and defaults to Store.
type Deps struct {
	Config   config.Config
	Renderer render.Renderer
	Redis    *redis.Client
	Store    fiber.Storage
	Sessions fiber.Storage
	Tokens   *tokens.Cache
}

// New creates the app with all routes mounted.
func New(d Deps) *fiber.App {
	cfg := d.Config

	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             cfg.Limits.MaxRequestBytes,
		ErrorHandler:          ErrorHandler,
	})

	middleware.Register(app, cfg)

	store := d.Store
	if store == nil {
		store = memoryStorage.New()
	}
	sessionStore := d.Sessions
	if sessionStore == nil {
		sessionStore = store
	}

	rl := middleware.RateLimitConfig{
		RateInterval:           cfg.RateLimiter.Interval,
		EnableTokenRateLimiter: d.Tokens != nil,
		EnableUserLimiter:      cfg.RateLimiter.EnableUserLimiter || cfg.RateLimiter.UserLimit > 0,
		UserLimit:              cfg.RateLimiter.UserLimit,
	}
	if d.Tokens != nil {
		app.Use(middleware.APIKeyAuth(d.Tokens))
		app.Use(middleware.TokenRateLimit(rl, d.Tokens, store, middleware.NewLimiterCache()))
	}
	if rl.EnableUserLimiter {
		app.Use(middleware.UserRateLimit(rl, store))
	}

	renderer := d.Renderer
	if renderer == nil {
		var err error
		if renderer, err = render.New(cfg); err != nil {
			logging.Error("Unknown PDF engine, using fpdf", "engine", cfg.PDF.Engine, "error", err)
			renderer = render.NewTreeRenderer()
		}
	}

	var pdfCache *cache.PDFCache
	if cfg.Cache.PDFCacheEnabled && d.Redis != nil {
		pdfCache = cache.NewPDFCache(d.Redis, cfg.Cache.PDFCacheTTL)
	}
	svc := handlers.NewPDFService(cfg, renderer, pdfCache)

	api := app.Group("/api")
	api.Post("/generate-pdf", svc.HandleGenerate)
	api.Get("/chrome/stats", svc.HandleChromeStats)

	app.Get("/ops/monitor", monitor.New(monitor.Config{Title: "pdfstudio"}))

	sessions := session.New(session.Config{
		Storage:        sessionStore,
		Expiration:     cfg.Viewer.DocumentTTL,
		KeyLookup:      "cookie:pdfstudio_session",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})
	ui := handlers.NewUI(svc, sessions, viewer.NewBlobStore(sessionStore, cfg.Viewer.DocumentTTL))

	app.Get("/", ui.HandleIndex)
	app.Post("/ui/generate", ui.HandleGenerate)
	app.Post("/ui/viewer/open", ui.HandleOpen)
	app.Post("/ui/viewer/:action", ui.HandleViewerAction)
	app.Get("/ui/document", ui.HandleDocument)
	app.Get("/ui/document/download", ui.HandleDownload)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// ErrorHandler renders every error as {"error": message}. Errors that are
// not *fiber.Error become a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		logging.Error("Unhandled error", "path", c.Path(), "error", err)
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg,
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID))

	return c.Status(code).JSON(fiber.Map{"error": msg})
}
