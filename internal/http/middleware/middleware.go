// Package middleware holds the fiber middleware shared by the API and the web UI.
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	"pdfstudio/internal/config"
	"pdfstudio/internal/infra/logging"
)

// Register attaches the global middleware: CORS, request ids, panic
// recovery, the liveness endpoint and request logging.
func Register(app *fiber.App, cfg config.Config) {
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	app.Use(cors.New(cors.Config{
		ExposeHeaders: "Content-Disposition, X-PDF-Pages, X-Request-ID",
	}))

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint: "/ops/health",
	}))

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logging.Info("Incoming request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return err
	})
}

func errorBody(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
