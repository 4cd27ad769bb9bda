package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LockMode modo de bloqueo sobre la fila del snapshot (la cola de la cadena).
type LockMode int

const (
	// LockAppend crea la fila génesis si no existe y serializa los appends del producto.
	LockAppend LockMode = iota
	// LockVerify compartido: no bloquea appends, excluye resets.
	LockVerify
	// LockReset exclusivo frente a appends y verificaciones.
	LockReset
)

// StockSnapshotRepository puerto para el snapshot por producto.
type StockSnapshotRepository interface {
	// Get lectura O(1); (nil, nil) si el producto no tiene historial.
	Get(ctx context.Context, productID string) (*entity.StockSnapshot, error)
	// Lock bloquea la fila hasta el fin de la transacción. Con LockVerify/LockReset devuelve (nil, nil) si no existe.
	Lock(ctx context.Context, productID string, mode LockMode) (*entity.StockSnapshot, error)
	// Save escribe el snapshot si Version no cambió; incrementa Version en el struct.
	Save(ctx context.Context, snapshot *entity.StockSnapshot) error
	// MarkVerified sella last_verified sobre la misma cadena que se verificó (mismo Epoch):
	// VALID solo si la cola sigue en upTo.Sequence, CORRUPTED si llega o pasa de ahí.
	MarkVerified(ctx context.Context, productID string, status entity.IntegrityStatus, verifiedAt time.Time, upTo entity.ChainTail) error
}
