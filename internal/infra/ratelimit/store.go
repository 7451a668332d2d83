// Package ratelimit builds the fiber.Storage backing the request limiter.
package ratelimit

import (
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"

	"svgrender/internal/config"
	"svgrender/internal/infra/logging"
)

// NewStore returns Redis-backed storage when cfg.Addr is set and reachable,
// memory storage otherwise. It never returns nil.
func NewStore(cfg config.RedisConfig) (store fiber.Storage) {
	if cfg.Addr == "" {
		return memoryStorage.New()
	}

	// redis storage panics when the first ping fails.
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory", "addr", cfg.Addr, "panic", r)
			store = memoryStorage.New()
		}
	}()

	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Addr},
		Database: cfg.DB,
	})
	logging.Info("Using Redis for rate limiting", "addr", cfg.Addr, "db", cfg.DB)
	return store
}
