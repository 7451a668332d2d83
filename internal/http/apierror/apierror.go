// Package apierror writes the JSON error envelope shared by handlers,
// middleware and the app-level error handler.
package apierror

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"svgrender/internal/domain"
)

type body struct {
	Error detail `json:"error"`
}

type detail struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Write sends {"error":{"code","kind","message"}} with the given status.
func Write(c *fiber.Ctx, status int, kind string, message string) error {
	return c.Status(status).JSON(body{Error: detail{Code: status, Kind: kind, Message: message}})
}

// FromError maps err to a status and writes the envelope. fiber errors keep
// their own status.
func FromError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Write(c, fe.Code, kindForStatus(fe.Code), fe.Message)
	}
	kind := domain.KindOf(err)
	return Write(c, domain.HTTPStatus(kind), string(kind), domain.UserMessage(err))
}

func kindForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
		return string(domain.KindInvalidInput)
	case fiber.StatusUnauthorized:
		return string(domain.KindUnauthorized)
	case fiber.StatusNotFound:
		return "NotFound"
	case fiber.StatusMethodNotAllowed:
		return "MethodNotAllowed"
	case fiber.StatusTooManyRequests:
		return "RateLimited"
	}
	return string(domain.KindInternal)
}
