package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/number-console/internal/domain"
	"github.com/kursadbilgin/number-console/internal/observability"
	"github.com/kursadbilgin/number-console/internal/selection"
)

// SessionHeader carries the console session a request belongs to.
const SessionHeader = "X-Console-Session"

// RequestContext copies the request id assigned by the requestid middleware
// into the user context so services and loggers can pick it up.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := requestID(c); id != "" {
			c.SetUserContext(observability.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func sessionFrom(c *fiber.Ctx) string {
	return selection.NormalizeSession(c.Get(SessionHeader))
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
