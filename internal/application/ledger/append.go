package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/chainhash"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// AppendService es la ruta de escritura del libro: registra movimientos encadenados
// bloqueando la fila del snapshot del producto (la cola de la cadena) durante la transacción.
type AppendService struct {
	txRunner TxRunner
	metrics  Metrics
	log      *logger.Logger
	now      Clock
}

// NewAppendService construye el servicio. metrics nil = NopMetrics.
func NewAppendService(txRunner TxRunner, metrics Metrics, log *logger.Logger) *AppendService {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &AppendService{
		txRunner: txRunner,
		metrics:  metrics,
		log:      log.Component("ledger.append"),
		now:      systemClock,
	}
}

// WithClock reemplaza la fuente de tiempo (tests).
func (s *AppendService) WithClock(c Clock) *AppendService {
	s.now = c
	return s
}

// RecordStockMovement agrega un eslabón a la cadena del producto y actualiza su snapshot de forma atómica.
// Si el stock resultante fuese negativo devuelve *domain.InsufficientStockError y no persiste nada.
func (s *AppendService) RecordStockMovement(ctx context.Context, in MovementInput) (*entity.LedgerEntry, error) {
	start := time.Now()
	if err := validateMovement(in); err != nil {
		s.reject(in, err)
		return nil, err
	}

	var created *entity.LedgerEntry
	err := s.txRunner.Run(ctx, func(
		entries repository.LedgerEntryRepository,
		snapshots repository.StockSnapshotRepository,
		products repository.ProductRepository,
	) error {
		if err := ensureProduct(ctx, products, in.ProductID); err != nil {
			return err
		}
		// Bloquea la cola de la cadena (crea el snapshot génesis si no existe)
		snap, err := snapshots.Lock(ctx, in.ProductID, repository.LockAppend)
		if err != nil {
			return err
		}
		entry, err := link(snap, in, stamp(s.now))
		if err != nil {
			return err
		}
		if err := entries.Insert(ctx, entry); err != nil {
			return err
		}
		if err := snapshots.Save(ctx, snap); err != nil {
			return err
		}
		created = entry
		return nil
	})
	if err != nil {
		s.reject(in, err)
		return nil, err
	}

	s.metrics.ObserveAppend(created.MovementType, time.Since(start))
	s.log.Debug().
		Str("product_id", created.ProductID).
		Int64("sequence", created.SequenceNumber).
		Str("delta", created.QuantityDelta.StringFixed(3)).
		Str("resulting_stock", created.ResultingStock.StringFixed(3)).
		Str("hash", created.CurrentHash).
		Msg("movimiento registrado")
	return created, nil
}

// ProcessBatchMovements registra todos los movimientos o ninguno. Los productos se bloquean por
// adelantado en orden ascendente de ID para evitar esperas circulares entre lotes concurrentes.
// Devuelve los eslabones creados en el orden de entrada; ante cualquier fallo, *domain.BatchError.
func (s *AppendService) ProcessBatchMovements(ctx context.Context, items []MovementInput) ([]*entity.LedgerEntry, error) {
	start := time.Now()
	if len(items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	firstIndex := make(map[string]int, len(items))
	for i, it := range items {
		if err := validateMovement(it); err != nil {
			s.metrics.AppendRejected(rejectionReason(err))
			return nil, &domain.BatchError{Index: i, ProductID: it.ProductID, Err: err}
		}
		if _, ok := firstIndex[it.ProductID]; !ok {
			firstIndex[it.ProductID] = i
		}
	}
	productIDs := make([]string, 0, len(firstIndex))
	for id := range firstIndex {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	var created []*entity.LedgerEntry
	err := s.txRunner.Run(ctx, func(
		entries repository.LedgerEntryRepository,
		snapshots repository.StockSnapshotRepository,
		products repository.ProductRepository,
	) error {
		for _, id := range productIDs {
			if err := ensureProduct(ctx, products, id); err != nil {
				return &domain.BatchError{Index: firstIndex[id], ProductID: id, Err: err}
			}
		}
		tails := make(map[string]*entity.StockSnapshot, len(productIDs))
		for _, id := range productIDs {
			snap, err := snapshots.Lock(ctx, id, repository.LockAppend)
			if err != nil {
				return &domain.BatchError{Index: firstIndex[id], ProductID: id, Err: err}
			}
			tails[id] = snap
		}

		now := stamp(s.now)
		out := make([]*entity.LedgerEntry, len(items))
		for i, it := range items {
			entry, err := link(tails[it.ProductID], it, now)
			if err != nil {
				return &domain.BatchError{Index: i, ProductID: it.ProductID, Err: err}
			}
			if err := entries.Insert(ctx, entry); err != nil {
				return &domain.BatchError{Index: i, ProductID: it.ProductID, Err: err}
			}
			out[i] = entry
		}
		for _, id := range productIDs {
			if err := snapshots.Save(ctx, tails[id]); err != nil {
				return &domain.BatchError{Index: firstIndex[id], ProductID: id, Err: err}
			}
		}
		created = out
		return nil
	})
	if err != nil {
		s.metrics.AppendRejected(rejectionReason(err))
		s.log.Info().Err(err).Int("items", len(items)).Msg("lote rechazado")
		return nil, err
	}

	s.metrics.ObserveBatch(len(created), time.Since(start))
	s.log.Debug().Int("items", len(created)).Int("products", len(productIDs)).Msg("lote registrado")
	return created, nil
}

// link calcula el siguiente eslabón a partir de la cola bloqueada y avanza el snapshot en memoria.
// El snapshot solo se persiste después, dentro de la misma transacción.
func link(snap *entity.StockSnapshot, in MovementInput, now time.Time) (*entity.LedgerEntry, error) {
	resulting := snap.CurrentStock.Add(in.QuantityDelta)
	if resulting.IsNegative() {
		return nil, &domain.InsufficientStockError{
			ProductID:    in.ProductID,
			CurrentStock: snap.CurrentStock,
			Delta:        in.QuantityDelta,
		}
	}
	if resulting.GreaterThanOrEqual(maxQuantity) {
		return nil, fmt.Errorf("%w: el stock resultante de %s supera el máximo admitido", domain.ErrInvalidInput, in.ProductID)
	}
	entry := &entity.LedgerEntry{
		ID:             uuid.New().String(),
		ProductID:      in.ProductID,
		QuantityDelta:  in.QuantityDelta,
		ResultingStock: resulting,
		MovementType:   in.MovementType,
		Description:    in.Description,
		PreviousHash:   snap.LastTransactionHash,
		HashVersion:    chainhash.Version,
		Timestamp:      now,
		UserID:         in.UserID,
		OrderID:        in.OrderID,
		SequenceNumber: snap.LastSequenceNumber + 1,
	}
	entry.CurrentHash = chainhash.Digest(hashFields(entry))

	snap.CurrentStock = resulting
	snap.LastTransactionHash = entry.CurrentHash
	snap.LastSequenceNumber = entry.SequenceNumber
	snap.LastUpdated = now
	snap.IntegrityStatus = entity.IntegrityUnverified
	return entry, nil
}

// hashFields extrae los campos canónicos de un eslabón.
func hashFields(e *entity.LedgerEntry) chainhash.Fields {
	return chainhash.Fields{
		PreviousHash:   e.PreviousHash,
		ProductID:      e.ProductID,
		SequenceNumber: e.SequenceNumber,
		QuantityDelta:  e.QuantityDelta,
		ResultingStock: e.ResultingStock,
		MovementType:   string(e.MovementType),
		Timestamp:      e.Timestamp,
		Description:    e.Description,
		UserID:         e.UserID,
		OrderID:        e.OrderID,
	}
}

func ensureProduct(ctx context.Context, products repository.ProductRepository, id string) error {
	p, err := products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *AppendService) reject(in MovementInput, err error) {
	s.metrics.AppendRejected(rejectionReason(err))
	s.log.Info().
		Err(err).
		Str("product_id", in.ProductID).
		Str("type", string(in.MovementType)).
		Str("delta", in.QuantityDelta.String()).
		Msg("movimiento rechazado")
}
