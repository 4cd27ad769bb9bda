package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// errorStatus traduce un error de dominio a status HTTP y código.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrProductNotFound):
		return fiber.StatusNotFound, "PRODUCT_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrVersionConflict):
		return fiber.StatusConflict, "VERSION_CONFLICT"
	case errors.Is(err, domain.ErrConcurrencyTimeout):
		return fiber.StatusServiceUnavailable, "LOCK_TIMEOUT"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

// writeError responde con dto.ErrorResponse; los errores de lote indican el ítem culpable.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
		msg = "error interno"
	}
	if domain.IsTransient(err) {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	var batchErr *domain.BatchError
	if errors.As(err, &batchErr) {
		return c.Status(status).JSON(dto.BatchErrorResponse{
			ErrorResponse: dto.ErrorResponse{Code: code, Message: msg},
			Index:         batchErr.Index,
			ProductID:     batchErr.ProductID,
		})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
