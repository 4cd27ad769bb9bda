// Package bootstrap arma los servicios del libro según la configuración; lo comparten la API y ledgerctl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Services servicios de aplicación listos para usar.
type Services struct {
	Appender *ledger.AppendService
	Verifier *ledger.IntegrityVerifier
	Resetter *ledger.ResetService
	Queries  *ledger.QueryService
	Catalog  *ledger.CatalogService

	pool *pgxpool.Pool
}

// New conecta el backend configurado (PostgreSQL o memoria) y construye los servicios.
// metrics nil = sin instrumentación.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, metrics ledger.Metrics) (*Services, error) {
	var (
		runner    ledger.TxRunner
		entries   repository.LedgerEntryRepository
		snapshots repository.StockSnapshotRepository
		products  repository.ProductRepository
		pool      *pgxpool.Pool
	)
	switch cfg.Ledger.Store {
	case config.StoreMemory:
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
		store := memory.NewStore(cfg.Ledger.LockTimeout)
		runner, entries, snapshots, products = store, store.Entries(), store.Snapshots(), store.Products()
	case config.StorePostgres:
		var err error
		pool, err = postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		runner = postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout)
		entries = postgres.NewLedgerEntryRepository(pool)
		snapshots = postgres.NewStockSnapshotRepository(pool)
		products = postgres.NewProductRepository(pool)
	default:
		return nil, fmt.Errorf("almacén desconocido %q", cfg.Ledger.Store)
	}

	return &Services{
		Appender: ledger.NewAppendService(runner, metrics, log),
		Verifier: ledger.NewIntegrityVerifier(runner, metrics, log, cfg.Ledger.VerifyConcurrency),
		Resetter: ledger.NewResetService(runner, metrics, log),
		Queries:  ledger.NewQueryService(entries, snapshots, products),
		Catalog:  ledger.NewCatalogService(products),
		pool:     pool,
	}, nil
}

// Migrate aplica el esquema (no-op en memoria).
func (s *Services) Migrate(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return postgres.Migrate(ctx, s.pool)
}

// Close libera el pool de conexiones.
func (s *Services) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
