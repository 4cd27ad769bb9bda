package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/chainhash"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ResetResult resumen de un reset irreversible.
type ResetResult struct {
	ProductID      string
	DeletedEntries int64
	CarriedStock   string // stock que conserva el snapshot y pasa a ser el saldo de partida
	ResetAt        time.Time
}

// ResetService purga la cadena de un producto (solo administradores, irreversible).
type ResetService struct {
	txRunner TxRunner
	metrics  Metrics
	log      *logger.Logger
	now      Clock
}

// NewResetService construye el servicio.
func NewResetService(txRunner TxRunner, metrics Metrics, log *logger.Logger) *ResetService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &ResetService{
		txRunner: txRunner,
		metrics:  metrics,
		log:      log.Component("ledger.reset"),
		now:      systemClock,
	}
}

// WithClock reemplaza la fuente de tiempo (tests).
func (s *ResetService) WithClock(c Clock) *ResetService {
	s.now = c
	return s
}

// ResetProductLedger elimina todos los eslabones del producto bajo bloqueo exclusivo.
// No toca current_stock: la cola vuelve a génesis y el stock actual queda como saldo de partida,
// así el siguiente movimiento abre una cadena nueva con sequence_number = 1.
func (s *ResetService) ResetProductLedger(ctx context.Context, productID string, actor entity.Actor) (*ResetResult, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	res := &ResetResult{ProductID: productID}
	err := s.txRunner.Run(ctx, func(
		entries repository.LedgerEntryRepository,
		snapshots repository.StockSnapshotRepository,
		products repository.ProductRepository,
	) error {
		if err := ensureProduct(ctx, products, productID); err != nil {
			return err
		}
		snap, err := snapshots.Lock(ctx, productID, repository.LockReset)
		if err != nil {
			return err
		}
		deleted, err := entries.DeleteByProduct(ctx, productID)
		if err != nil {
			return err
		}
		res.DeletedEntries = deleted
		res.ResetAt = stamp(s.now)
		if snap == nil {
			res.CarriedStock = chainhash.FormatQuantity(decimal.Zero)
			return nil
		}
		snap.OpeningStock = snap.CurrentStock
		snap.LastTransactionHash = chainhash.Genesis
		snap.LastSequenceNumber = 0
		snap.LastUpdated = res.ResetAt
		snap.LastVerified = nil
		snap.IntegrityStatus = entity.IntegrityUnverified
		snap.ChainEpoch++
		res.CarriedStock = chainhash.FormatQuantity(snap.CurrentStock)
		return snapshots.Save(ctx, snap)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.LedgerReset(res.DeletedEntries)
	s.log.Warn().
		Str("product_id", productID).
		Str("actor", actor.UserID).
		Int64("deleted_entries", res.DeletedEntries).
		Str("carried_stock", res.CarriedStock).
		Msg("cadena reiniciada")
	return res, nil
}
