package ledger

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

const (
	quantityScale        = 3
	maxDescriptionLength = 500
)

// maxQuantity límite de NUMERIC(18,3).
var maxQuantity = decimal.New(1, 15)

// MovementInput un movimiento solicitado por un flujo externo (recepción, receta, ajuste manual).
type MovementInput struct {
	ProductID     string
	QuantityDelta decimal.Decimal // con signo
	MovementType  entity.MovementType
	Description   string
	UserID        string // opcional
	OrderID       string // opcional
}

// validateMovement revisa las precondiciones que no requieren leer el almacenamiento.
func validateMovement(in MovementInput) error {
	if strings.TrimSpace(in.ProductID) == "" {
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if !in.MovementType.Valid() {
		return fmt.Errorf("%w: tipo de movimiento %q no reconocido", domain.ErrInvalidInput, in.MovementType)
	}
	d := in.QuantityDelta
	if d.IsZero() {
		return fmt.Errorf("%w: la cantidad no puede ser cero", domain.ErrInvalidInput)
	}
	if !d.Equal(d.Truncate(quantityScale)) {
		return fmt.Errorf("%w: la cantidad admite máximo %d decimales", domain.ErrInvalidInput, quantityScale)
	}
	if d.Abs().GreaterThanOrEqual(maxQuantity) {
		return fmt.Errorf("%w: cantidad fuera de rango", domain.ErrInvalidInput)
	}
	switch in.MovementType {
	case entity.MovementTypeIN:
		if d.IsNegative() {
			return fmt.Errorf("%w: una entrada requiere cantidad positiva", domain.ErrInvalidInput)
		}
	case entity.MovementTypeOUT:
		if d.IsPositive() {
			return fmt.Errorf("%w: una salida requiere cantidad negativa", domain.ErrInvalidInput)
		}
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: descripción supera %d caracteres", domain.ErrInvalidInput, maxDescriptionLength)
	}
	return nil
}

// rejectionReason etiqueta de métrica para un error de escritura.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrConcurrencyTimeout):
		return "lock_timeout"
	case errors.Is(err, domain.ErrVersionConflict):
		return "version_conflict"
	default:
		return "internal"
	}
}
