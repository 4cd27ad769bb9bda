package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LedgerEntryRepository puerto de persistencia append-only de los eslabones de la cadena.
// No existe operación de actualización: un eslabón escrito solo se elimina con un reset completo.
type LedgerEntryRepository interface {
	Insert(ctx context.Context, entry *entity.LedgerEntry) error
	// ListByProduct devuelve los eslabones ordenados por sequence_number ascendente; limit <= 0 = todos.
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.LedgerEntry, error)
	Count(ctx context.Context, productID string) (int64, error)
	// ListProductIDs devuelve los productos con historial, ordenados ascendentemente.
	ListProductIDs(ctx context.Context) ([]string, error)
	DeleteByProduct(ctx context.Context, productID string) (int64, error)
}
