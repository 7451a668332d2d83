package middleware

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	"svgrender/internal/config"
	"svgrender/internal/domain"
	"svgrender/internal/http/apierror"
	"svgrender/internal/infra/logging"
)

var errInvalidAPIKey = errors.New("invalid or missing API key")

// Register attaches the global middleware: CORS, request ids, panic
// recovery, liveness/readiness probes and the access log.
func Register(app *fiber.App) {
	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(recover.New())

	app.Use(healthcheck.New())

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			} else {
				status = domain.HTTPStatus(domain.KindOf(err))
			}
		}
		logging.Info("Request handled",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return err
	})
}

// APIKey rejects requests whose X-API-Key does not equal key.
func APIKey(key string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: "api_key",
		Validator: func(c *fiber.Ctx, presented string) (bool, error) {
			if key == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				return false, errInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logging.Warn("Unauthorized request", "path", c.Path(), "ip", c.IP())
			return apierror.Write(c, fiber.StatusUnauthorized, string(domain.KindUnauthorized), errInvalidAPIKey.Error())
		},
	})
}

// RateLimit limits each client IP to cfg.Max requests per cfg.Window. With
// Max <= 0 it passes everything through.
func RateLimit(cfg config.RateLimiterConfig, storage fiber.Storage) fiber.Handler {
	if cfg.Max <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	return limiter.New(limiter.Config{
		Max:               cfg.Max,
		Expiration:        cfg.Window,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			logging.Warn("Rate limit exceeded", "ip", c.IP(), "path", c.Path())
			return apierror.Write(c, fiber.StatusTooManyRequests, "RateLimited", "Too Many Requests")
		},
	})
}
