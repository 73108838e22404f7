package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// errFromDomain maps core errors onto the API error envelope.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrFeatureNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, usecases.ErrNotDrawing),
		errors.Is(err, usecases.ErrAlreadyDrawing),
		errors.Is(err, usecases.ErrIncompleteShape),
		errors.Is(err, domain.ErrDuplicateFeature):
		return errConflict(c, err.Error())
	case errors.Is(err, usecases.ErrUnknownTool),
		errors.Is(err, usecases.ErrInvalidPointer),
		errors.Is(err, domain.ErrUnknownGeometryKind),
		errors.Is(err, domain.ErrMalformedFeature),
		errors.Is(err, domain.ErrUnsupportedGeometry):
		return errBadRequest(c, err.Error())
	}
	LoggerFromCtx(c.UserContext()).Error("unhandled error", slog.String("error", err.Error()))
	return errInternal(c, err.Error())
}
