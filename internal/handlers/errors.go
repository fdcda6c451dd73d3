package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"pdfrelay/internal/domain"
	"pdfrelay/internal/infra/logging"
)

// ErrorHandler maps every error returned by a handler or middleware to the
// relay's JSON envelope. Upstream failures are logged where they happen.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	resp := Response{Success: false, Message: "Internal Server Error"}

	var apiErr *APIError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Status
		resp.Message = apiErr.Message
		if code >= fiber.StatusInternalServerError && apiErr.Err != nil {
			resp.Error = apiErr.Err.Error()
		}
		var verr *domain.ValidationError
		if errors.Is(err, domain.ErrValidation) && errors.As(err, &verr) {
			logging.Debug("Request rejected", "path", c.Path(), "missing", strings.Join(verr.Fields, ","))
		}
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		resp.Message = fiberErr.Message
	default:
		resp.Error = err.Error()
		logging.Error("Unhandled error", "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(resp)
}
