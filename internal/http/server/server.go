package server

import (
	"github.com/gofiber/fiber/v2"

	"svgrender/internal/config"
	"svgrender/internal/domain"
	"svgrender/internal/http/apierror"
	"svgrender/internal/http/handlers"
	"svgrender/internal/http/middleware"
	"svgrender/internal/infra/logging"
)

type Deps struct {
	Config   config.Config
	Renderer handlers.Renderer
	Limiter  fiber.Storage
}

// New creates the fiber app with middleware, routes and JSON errors.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logging.Warn("Request failed", "path", c.Path(), "kind", string(domain.KindOf(err)), "error", err)
			return apierror.FromError(c, err)
		},
	})

	middleware.Register(app)

	app.Get("/healthz", handlers.Health)
	app.Post("/render",
		middleware.APIKey(d.Config.Server.APIKey),
		middleware.RateLimit(d.Config.RateLimiter, d.Limiter),
		handlers.Render(d.Renderer),
	)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}
