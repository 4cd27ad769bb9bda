package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/chainhash"
)

var _ repository.StockSnapshotRepository = (*StockSnapshotRepo)(nil)

// StockSnapshotRepo snapshot por producto sobre PostgreSQL (usable con pool o tx).
// La fila es también el mutex de la cadena: Lock usa los bloqueos de fila del motor.
type StockSnapshotRepo struct {
	q Querier
}

// NewStockSnapshotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockSnapshotRepository(q Querier) *StockSnapshotRepo {
	return &StockSnapshotRepo{q: q}
}

const snapshotColumns = `
	product_id, current_stock, opening_stock, last_transaction_hash, last_sequence_number,
	last_updated, last_verified, integrity_status, chain_epoch, version`

func scanSnapshot(row pgx.Row) (*entity.StockSnapshot, error) {
	var (
		s      entity.StockSnapshot
		status string
	)
	err := row.Scan(
		&s.ProductID, &s.CurrentStock, &s.OpeningStock, &s.LastTransactionHash, &s.LastSequenceNumber,
		&s.LastUpdated, &s.LastVerified, &status, &s.ChainEpoch, &s.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.IntegrityStatus = entity.IntegrityStatus(status)
	return &s, nil
}

// Get lectura O(1); (nil, nil) si no existe.
func (r *StockSnapshotRepo) Get(ctx context.Context, productID string) (*entity.StockSnapshot, error) {
	query := `SELECT` + snapshotColumns + ` FROM stock_snapshots WHERE product_id = $1`
	snap, err := scanSnapshot(r.q.QueryRow(ctx, query, productID))
	if err != nil {
		return nil, wrapErr("get snapshot", err)
	}
	return snap, nil
}

// lockClauses bloqueo de fila por modo:
// NO KEY UPDATE serializa appends sin chocar con KEY SHARE (verificaciones),
// FOR UPDATE choca con ambos (reset).
var lockClauses = map[repository.LockMode]string{
	repository.LockAppend: "FOR NO KEY UPDATE",
	repository.LockVerify: "FOR KEY SHARE",
	repository.LockReset:  "FOR UPDATE",
}

// Lock bloquea la fila del snapshot hasta el fin de la transacción.
// Con LockAppend crea antes la fila génesis (dentro de la misma tx, así un rollback no deja huérfanos).
func (r *StockSnapshotRepo) Lock(ctx context.Context, productID string, mode repository.LockMode) (*entity.StockSnapshot, error) {
	clause, ok := lockClauses[mode]
	if !ok {
		return nil, fmt.Errorf("modo de bloqueo desconocido: %d", mode)
	}
	if mode == repository.LockAppend {
		_, err := r.q.Exec(ctx, `
			INSERT INTO stock_snapshots (product_id, current_stock, opening_stock, last_transaction_hash,
				last_sequence_number, last_updated, integrity_status, version)
			VALUES ($1, 0, 0, $2, 0, now(), $3, 0)
			ON CONFLICT (product_id) DO NOTHING`,
			productID, chainhash.Genesis, string(entity.IntegrityUnverified))
		if err != nil {
			return nil, wrapErr("create genesis snapshot", err)
		}
	}
	query := `SELECT` + snapshotColumns + ` FROM stock_snapshots WHERE product_id = $1 ` + clause
	snap, err := scanSnapshot(r.q.QueryRow(ctx, query, productID))
	if err != nil {
		return nil, wrapErr("lock snapshot", err)
	}
	return snap, nil
}

// Save escribe el snapshot si la versión no cambió e incrementa Version.
func (r *StockSnapshotRepo) Save(ctx context.Context, s *entity.StockSnapshot) error {
	query := `
		UPDATE stock_snapshots
		SET current_stock = $2, opening_stock = $3, last_transaction_hash = $4, last_sequence_number = $5,
			last_updated = $6, last_verified = $7, integrity_status = $8, chain_epoch = $9, version = version + 1
		WHERE product_id = $1 AND version = $10`
	tag, err := r.q.Exec(ctx, query,
		s.ProductID, s.CurrentStock, s.OpeningStock, s.LastTransactionHash, s.LastSequenceNumber,
		s.LastUpdated, s.LastVerified, string(s.IntegrityStatus), s.ChainEpoch, s.Version,
	)
	if err != nil {
		return wrapErr("save snapshot", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	s.Version++
	return nil
}

// markVerifiedQuery solo toca la cadena verificada (mismo chain_epoch). VALID si la cola no avanzó
// desde la lectura; CORRUPTED mientras siga en o después del eslabón verificado.
const markVerifiedQuery = `
		UPDATE stock_snapshots
		SET integrity_status = $2, last_verified = $3, version = version + 1
		WHERE product_id = $1
		  AND chain_epoch = $4
		  AND CASE WHEN $2 = 'VALID' THEN last_sequence_number = $5 ELSE last_sequence_number >= $5 END`

// MarkVerified sella el resultado de una verificación; no hace nada si la cadena cambió de época.
func (r *StockSnapshotRepo) MarkVerified(ctx context.Context, productID string, status entity.IntegrityStatus, verifiedAt time.Time, upTo entity.ChainTail) error {
	_, err := r.q.Exec(ctx, markVerifiedQuery, productID, string(status), verifiedAt, upTo.Epoch, upTo.Sequence)
	return wrapErr("mark verified", err)
}
