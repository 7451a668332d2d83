package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"svgrender/internal/domain"
	"svgrender/internal/http/apierror"
	"svgrender/internal/infra/logging"
	"svgrender/internal/pipeline"
)

type Renderer interface {
	Render(ctx context.Context, req domain.RenderRequest) (domain.RenderResponse, error)
}

// Render handles POST /render. The pipeline runs on a context detached from
// the client connection, so a disconnect does not abort it.
func Render(svc Renderer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.RenderRequest
		if err := c.App().Config().JSONDecoder(c.Body(), &req); err != nil {
			logging.Warn("Invalid render body", "error", err)
			return apierror.FromError(c, domain.Wrap(domain.KindInvalidInput, err, "request body must be a JSON object with svg_url"))
		}

		rid := c.GetRespHeader(fiber.HeaderXRequestID)
		ctx := pipeline.WithRequestID(context.WithoutCancel(c.UserContext()), rid)

		resp, err := svc.Render(ctx, req)
		if err != nil {
			return apierror.FromError(c, err)
		}
		return c.JSON(resp)
	}
}

// Health handles GET /healthz.
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
