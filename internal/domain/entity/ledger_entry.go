package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento del libro de stock (conjunto cerrado).
type MovementType string

// Tipos de movimiento.
const (
	MovementTypeIN         MovementType = "IN"         // entrada
	MovementTypeOUT        MovementType = "OUT"        // salida
	MovementTypeADJUSTMENT MovementType = "ADJUSTMENT" // ajuste (cualquier signo)
)

// Valid indica si el tipo pertenece al conjunto reconocido.
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeIN, MovementTypeOUT, MovementTypeADJUSTMENT:
		return true
	}
	return false
}

// LedgerEntry es un eslabón inmutable de la cadena de un producto.
// (ProductID, SequenceNumber) es único; SequenceNumber empieza en 1 y no tiene huecos.
type LedgerEntry struct {
	ID             string
	ProductID      string
	QuantityDelta  decimal.Decimal // nunca cero, 3 decimales
	ResultingStock decimal.Decimal // stock acumulado tras este movimiento, >= 0
	MovementType   MovementType
	Description    string
	PreviousHash   string // currentHash del eslabón anterior o Genesis
	CurrentHash    string
	HashVersion    int
	Timestamp      time.Time
	UserID         string // opcional
	OrderID        string // opcional
	SequenceNumber int64
	Verified       bool // informativo; el estado autoritativo vive en StockSnapshot
}
