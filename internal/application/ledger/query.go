package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// QueryService lecturas rápidas: historial ordenado y snapshot O(1).
type QueryService struct {
	entries   repository.LedgerEntryRepository
	snapshots repository.StockSnapshotRepository
	products  repository.ProductRepository
}

// NewQueryService construye el servicio sobre repositorios sin transacción.
func NewQueryService(
	entries repository.LedgerEntryRepository,
	snapshots repository.StockSnapshotRepository,
	products repository.ProductRepository,
) *QueryService {
	return &QueryService{entries: entries, snapshots: snapshots, products: products}
}

// GetHistory devuelve la cadena del producto ordenada por sequence_number (limit <= 0 = todo).
func (q *QueryService) GetHistory(ctx context.Context, productID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	if err := ensureProduct(ctx, q.products, productID); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	return q.entries.ListByProduct(ctx, productID, limit, offset)
}

// GetSnapshot devuelve el snapshot del producto o domain.ErrNotFound si no tiene historial.
func (q *QueryService) GetSnapshot(ctx context.Context, productID string) (*entity.StockSnapshot, error) {
	snap, err := q.snapshots.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, domain.ErrNotFound
	}
	return snap, nil
}

// GetCurrentStock lectura O(1) del stock actual, independiente del largo de la cadena.
func (q *QueryService) GetCurrentStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	snap, err := q.GetSnapshot(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return snap.CurrentStock, nil
}
