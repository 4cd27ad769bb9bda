package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerEntryRepository = (*LedgerEntryRepo)(nil)

// LedgerEntryRepo eslabones append-only sobre PostgreSQL. La tabla rechaza UPDATE con un trigger.
type LedgerEntryRepo struct {
	q Querier
}

// NewLedgerEntryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerEntryRepository(q Querier) *LedgerEntryRepo {
	return &LedgerEntryRepo{q: q}
}

const entryColumns = `
	id::text, product_id, sequence_number, quantity_delta, resulting_stock, movement_type,
	description, previous_hash, current_hash, hash_version, created_at,
	COALESCE(user_id, ''), COALESCE(order_id, ''), verified`

// Insert persiste un eslabón. Un duplicado en (product_id, sequence_number) devuelve ErrVersionConflict.
func (r *LedgerEntryRepo) Insert(ctx context.Context, e *entity.LedgerEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO ledger_entries (id, product_id, sequence_number, quantity_delta, resulting_stock, movement_type,
			description, previous_hash, current_hash, hash_version, created_at, user_id, order_id, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.ProductID, e.SequenceNumber, e.QuantityDelta, e.ResultingStock, string(e.MovementType),
		e.Description, e.PreviousHash, e.CurrentHash, e.HashVersion, e.Timestamp,
		nullIfEmpty(e.UserID), nullIfEmpty(e.OrderID), e.Verified,
	)
	return wrapErr("insert ledger entry", err)
}

// ListByProduct eslabones del producto por sequence_number ascendente; limit <= 0 = todos.
func (r *LedgerEntryRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	query := `SELECT` + entryColumns + ` FROM ledger_entries WHERE product_id = $1 ORDER BY sequence_number`
	args := []any{productID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` OFFSET $2`
		args = append(args, offset)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list ledger entries", err)
	}
	list, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, wrapErr("scan ledger entry", err)
	}
	return list, nil
}

func scanEntry(row pgx.CollectableRow) (*entity.LedgerEntry, error) {
	var (
		e  entity.LedgerEntry
		mt string
	)
	err := row.Scan(
		&e.ID, &e.ProductID, &e.SequenceNumber, &e.QuantityDelta, &e.ResultingStock, &mt,
		&e.Description, &e.PreviousHash, &e.CurrentHash, &e.HashVersion, &e.Timestamp,
		&e.UserID, &e.OrderID, &e.Verified,
	)
	e.MovementType = entity.MovementType(mt)
	e.Timestamp = e.Timestamp.UTC()
	return &e, err
}

// Count número de eslabones del producto.
func (r *LedgerEntryRepo) Count(ctx context.Context, productID string) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `SELECT count(*) FROM ledger_entries WHERE product_id = $1`, productID).Scan(&n)
	if err != nil {
		return 0, wrapErr("count ledger entries", err)
	}
	return n, nil
}

// ListProductIDs productos con historial, ascendente.
func (r *LedgerEntryRepo) ListProductIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT product_id FROM ledger_entries ORDER BY product_id`)
	if err != nil {
		return nil, wrapErr("list ledger products", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapErr("scan ledger product", err)
	}
	return ids, nil
}

// DeleteByProduct borra la cadena completa del producto (solo reset).
func (r *LedgerEntryRepo) DeleteByProduct(ctx context.Context, productID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM ledger_entries WHERE product_id = $1`, productID)
	if err != nil {
		return 0, wrapErr("delete ledger entries", err)
	}
	return tag.RowsAffected(), nil
}
