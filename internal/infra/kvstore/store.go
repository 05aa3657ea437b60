// Package kvstore builds the fiber.Storage shared by rate limiting, UI
// sessions and viewer documents.
package kvstore

import (
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"

	"pdfstudio/internal/infra/logging"
)

type RedisConfig struct {
	Addr string
	DB   int
}

// New returns a Redis store for cfg, or an in-memory store when Addr is empty
// or Redis cannot be reached. It never returns nil.
func New(cfg RedisConfig) (store fiber.Storage) {
	store = memoryStorage.New()
	if cfg.Addr == "" {
		return store
	}

	// redis storage panics when the initial ping fails.
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis store init panicked, falling back to memory", "panic", r, "addr", cfg.Addr, "db", cfg.DB)
		}
	}()
	rs := redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Addr},
		Database: cfg.DB,
	})
	store = rs
	logging.Info("Using Redis store", "addr", cfg.Addr, "db", cfg.DB)
	return store
}
