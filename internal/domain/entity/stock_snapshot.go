package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// IntegrityStatus último resultado conocido de verificar la cadena de un producto.
type IntegrityStatus string

const (
	IntegrityUnverified IntegrityStatus = "UNVERIFIED"
	IntegrityValid      IntegrityStatus = "VALID"
	IntegrityCorrupted  IntegrityStatus = "CORRUPTED"
)

// StockSnapshot estado acumulado de la cadena de un producto (una fila por producto).
// Funciona como puntero a la cola de la cadena y como lectura O(1) del stock actual.
type StockSnapshot struct {
	ProductID           string
	CurrentStock        decimal.Decimal
	OpeningStock        decimal.Decimal // saldo de partida de la cadena actual (no cero solo tras un reset)
	LastTransactionHash string
	LastSequenceNumber  int64
	LastUpdated         time.Time
	LastVerified        *time.Time
	IntegrityStatus     IntegrityStatus
	ChainEpoch          int64 // sube con cada reset; distingue cadenas con la misma numeración
	Version             int64
}

// ChainTail identifica una posición de la cadena de forma estable frente a resets.
type ChainTail struct {
	Epoch    int64
	Sequence int64
}

// Tail posición actual de la cola.
func (s *StockSnapshot) Tail() ChainTail {
	return ChainTail{Epoch: s.ChainEpoch, Sequence: s.LastSequenceNumber}
}

// NewGenesisSnapshot construye el snapshot de un producto sin historial.
func NewGenesisSnapshot(productID, genesisHash string, now time.Time) *StockSnapshot {
	return &StockSnapshot{
		ProductID:           productID,
		CurrentStock:        decimal.Zero,
		OpeningStock:        decimal.Zero,
		LastTransactionHash: genesisHash,
		LastSequenceNumber:  0,
		LastUpdated:         now,
		IntegrityStatus:     IntegrityUnverified,
	}
}

// Clone devuelve una copia independiente.
func (s *StockSnapshot) Clone() *StockSnapshot {
	c := *s
	if s.LastVerified != nil {
		v := *s.LastVerified
		c.LastVerified = &v
	}
	return &c
}
