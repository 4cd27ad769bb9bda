package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Los adaptadores cumplen los puertos con pool o tx.
var (
	_ ledger.TxRunner                    = NewTxRunner(nil, 0)
	_ repository.LedgerEntryRepository   = NewLedgerEntryRepository(nil)
	_ repository.StockSnapshotRepository = NewStockSnapshotRepository(nil)
	_ repository.ProductRepository       = NewProductRepository(nil)
	_ Querier                            = (*fakeQuerier)(nil)
	_ pgx.Row                            = noRow{}
)

type call struct {
	sql  string
	args []any
}

// fakeQuerier registra las sentencias y devuelve respuestas fijas.
type fakeQuerier struct {
	calls   []call
	execTag pgconn.CommandTag
	execErr error
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql, args})
	return f.execTag, f.execErr
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql, args})
	return nil, errors.New("query no soportada en el fake")
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql, args})
	return noRow{}
}

type noRow struct{}

func (noRow) Scan(...any) error { return pgx.ErrNoRows }

func TestSnapshotLock_ClausulaPorModo(t *testing.T) {
	cases := map[repository.LockMode]string{
		repository.LockAppend: "FOR NO KEY UPDATE",
		repository.LockVerify: "FOR KEY SHARE",
		repository.LockReset:  "FOR UPDATE",
	}
	for mode, clause := range cases {
		t.Run(clause, func(t *testing.T) {
			q := &fakeQuerier{execTag: pgconn.NewCommandTag("INSERT 0 1")}
			snap, err := NewStockSnapshotRepository(q).Lock(context.Background(), "prod-1", mode)
			require.NoError(t, err)
			assert.Nil(t, snap)

			last := q.calls[len(q.calls)-1]
			assert.Contains(t, last.sql, clause)
			assert.Equal(t, []any{"prod-1"}, last.args)
			if mode == repository.LockAppend {
				require.Len(t, q.calls, 2)
				assert.Contains(t, q.calls[0].sql, "ON CONFLICT (product_id) DO NOTHING")
			} else {
				assert.Len(t, q.calls, 1)
			}
		})
	}

	_, err := NewStockSnapshotRepository(&fakeQuerier{}).Lock(context.Background(), "prod-1", repository.LockMode(9))
	assert.Error(t, err)
}

func TestSnapshotLock_TimeoutEsTransitorio(t *testing.T) {
	q := &fakeQuerier{execErr: &pgconn.PgError{Code: codeLockNotAvailable}}
	_, err := NewStockSnapshotRepository(q).Lock(context.Background(), "prod-1", repository.LockAppend)
	assert.ErrorIs(t, err, domain.ErrConcurrencyTimeout)
}

func TestSnapshotSave_VersionOptimista(t *testing.T) {
	snap := &entity.StockSnapshot{
		ProductID: "prod-1", CurrentStock: decimal.RequireFromString("4.5"),
		IntegrityStatus: entity.IntegrityUnverified, ChainEpoch: 2, Version: 7,
	}

	q := &fakeQuerier{execTag: pgconn.NewCommandTag("UPDATE 0")}
	err := NewStockSnapshotRepository(q).Save(context.Background(), snap)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.Equal(t, int64(7), snap.Version)

	q = &fakeQuerier{execTag: pgconn.NewCommandTag("UPDATE 1")}
	require.NoError(t, NewStockSnapshotRepository(q).Save(context.Background(), snap))
	assert.Equal(t, int64(8), snap.Version)
	args := q.calls[0].args
	assert.Equal(t, int64(2), args[8], "chain_epoch")
	assert.Equal(t, int64(7), args[9], "versión leída")
	assert.Contains(t, q.calls[0].sql, "AND version = $10")
}

func TestSnapshotMarkVerified_SoloLaCadenaVerificada(t *testing.T) {
	q := &fakeQuerier{execTag: pgconn.NewCommandTag("UPDATE 0")}
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	err := NewStockSnapshotRepository(q).MarkVerified(context.Background(), "prod-1", entity.IntegrityCorrupted, at,
		entity.ChainTail{Epoch: 3, Sequence: 12})
	require.NoError(t, err)

	require.Len(t, q.calls, 1)
	assert.Contains(t, q.calls[0].sql, "chain_epoch = $4")
	assert.Contains(t, q.calls[0].sql, "last_sequence_number = $5 ELSE last_sequence_number >= $5")
	assert.Equal(t, []any{"prod-1", "CORRUPTED", at, int64(3), int64(12)}, q.calls[0].args)
}

func TestLedgerEntryInsert_DuplicadoEsConflicto(t *testing.T) {
	q := &fakeQuerier{execErr: &pgconn.PgError{Code: codeUniqueViolation}}
	e := &entity.LedgerEntry{ProductID: "prod-1", SequenceNumber: 1, MovementType: entity.MovementTypeIN}
	err := NewLedgerEntryRepository(q).Insert(context.Background(), e)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.NotEmpty(t, e.ID)

	args := q.calls[0].args
	assert.Nil(t, args[11], "user_id vacío va como NULL")
	assert.Nil(t, args[12], "order_id vacío va como NULL")
}

func TestMigrate_EsquemaConEpoca(t *testing.T) {
	q := &fakeQuerier{}
	require.NoError(t, Migrate(context.Background(), q))
	require.Len(t, q.calls, 1)
	assert.Contains(t, q.calls[0].sql, "ADD COLUMN IF NOT EXISTS chain_epoch")

	q.execErr = errors.New("sin conexión")
	assert.Error(t, Migrate(context.Background(), q))
}
