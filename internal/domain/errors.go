package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrProductNotFound    = errors.New("producto no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrConcurrencyTimeout = errors.New("no se pudo adquirir el bloqueo del producto a tiempo, reintente")
	ErrVersionConflict    = errors.New("conflicto de versión: el snapshot cambió durante la operación")
	ErrBatchFailed        = errors.New("lote rechazado")
)

// InsufficientStockError detalla qué producto quedaría en negativo.
type InsufficientStockError struct {
	ProductID    string
	CurrentStock decimal.Decimal
	Delta        decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: actual %s, movimiento %s",
		e.ProductID, e.CurrentStock.StringFixed(3), e.Delta.StringFixed(3))
}

// Is permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// BatchError indica el ítem que hizo fallar el lote completo.
type BatchError struct {
	Index     int
	ProductID string
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("lote rechazado en el ítem %d (producto %s): %v", e.Index, e.ProductID, e.Err)
}

// Is permite errors.Is(err, ErrBatchFailed); la causa sigue accesible con Unwrap.
func (e *BatchError) Is(target error) bool {
	return target == ErrBatchFailed
}

func (e *BatchError) Unwrap() error { return e.Err }

// IsTransient indica si el error es de concurrencia y el llamador puede reintentar.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConcurrencyTimeout) || errors.Is(err, ErrVersionConflict)
}
