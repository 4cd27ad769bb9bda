package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/chainhash"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// IntegrityVerifier recalcula las cadenas y compara contra lo almacenado. Nunca modifica eslabones;
// solo sella integrity_status y last_verified en el snapshot.
type IntegrityVerifier struct {
	txRunner    TxRunner
	metrics     Metrics
	log         *logger.Logger
	now         Clock
	concurrency int
}

// NewIntegrityVerifier construye el verificador; concurrency acota VerifyAllChains.
func NewIntegrityVerifier(txRunner TxRunner, metrics Metrics, log *logger.Logger, concurrency int) *IntegrityVerifier {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &IntegrityVerifier{
		txRunner:    txRunner,
		metrics:     metrics,
		log:         log.Component("ledger.verify"),
		now:         systemClock,
		concurrency: concurrency,
	}
}

// WithClock reemplaza la fuente de tiempo (tests).
func (v *IntegrityVerifier) WithClock(c Clock) *IntegrityVerifier {
	v.now = c
	return v
}

// VerifyChainIntegrity verifica la cadena completa de un producto y reporta todas las discrepancias.
func (v *IntegrityVerifier) VerifyChainIntegrity(ctx context.Context, productID string) (*entity.IntegrityReport, error) {
	start := time.Now()
	var (
		report  *entity.IntegrityReport
		hasTail bool
		tail    entity.ChainTail
	)
	err := v.txRunner.RunReadOnly(ctx, func(
		entries repository.LedgerEntryRepository,
		snapshots repository.StockSnapshotRepository,
		products repository.ProductRepository,
	) error {
		product, err := products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		snap, err := snapshots.Lock(ctx, productID, repository.LockVerify)
		if err != nil {
			return err
		}
		chain, err := entries.ListByProduct(ctx, productID, 0, 0)
		if err != nil {
			return err
		}

		errs := checkChain(snap, chain)
		report = &entity.IntegrityReport{
			ProductID:      productID,
			ProductName:    product.Name,
			Valid:          len(errs) == 0,
			Errors:         errs,
			EntriesChecked: len(chain),
			VerifiedAt:     stamp(v.now),
		}
		report.Message = reportMessage(report)
		if snap != nil {
			hasTail = true
			tail = snap.Tail()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	status := entity.IntegrityValid
	if !report.Valid {
		status = entity.IntegrityCorrupted
		v.log.Warn().
			Str("product_id", productID).
			Int("discrepancies", len(report.Errors)).
			Msg("cadena corrupta")
	}
	if hasTail {
		err := v.txRunner.Run(ctx, func(
			_ repository.LedgerEntryRepository,
			snapshots repository.StockSnapshotRepository,
			_ repository.ProductRepository,
		) error {
			return snapshots.MarkVerified(ctx, productID, status, report.VerifiedAt, tail)
		})
		if err != nil {
			// El estado es informativo: el reporte sigue siendo válido.
			v.log.Error().Err(err).Str("product_id", productID).Msg("no se pudo sellar el estado de integridad")
		}
	}
	v.metrics.ObserveVerification(status, time.Since(start))
	return report, nil
}

// VerifyAllChains verifica todos los productos con historial. Un fallo en un producto no aborta
// los demás: se reporta como inválido con el error en Message. Resultados ordenados por producto.
func (v *IntegrityVerifier) VerifyAllChains(ctx context.Context) ([]*entity.IntegrityReport, error) {
	var productIDs []string
	err := v.txRunner.RunReadOnly(ctx, func(
		entries repository.LedgerEntryRepository,
		_ repository.StockSnapshotRepository,
		_ repository.ProductRepository,
	) error {
		ids, err := entries.ListProductIDs(ctx)
		productIDs = ids
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listar productos con historial: %w", err)
	}

	reports := make([]*entity.IntegrityReport, len(productIDs))
	var g errgroup.Group
	g.SetLimit(v.concurrency)
	for i, id := range productIDs {
		g.Go(func() error {
			r, err := v.VerifyChainIntegrity(ctx, id)
			if err != nil {
				v.log.Error().Err(err).Str("product_id", id).Msg("verificación fallida")
				r = &entity.IntegrityReport{
					ProductID:  id,
					Valid:      false,
					Message:    "verificación no completada: " + err.Error(),
					VerifiedAt: stamp(v.now),
				}
			}
			reports[i] = r
			return nil
		})
	}
	_ = g.Wait()

	corrupted := 0
	for _, r := range reports {
		if !r.Valid {
			corrupted++
		}
	}
	v.log.Info().Int("products", len(reports)).Int("invalid", corrupted).Msg("verificación global terminada")
	return reports, ctx.Err()
}

// checkChain recalcula la cadena completa y devuelve todas las discrepancias (no se detiene en la primera).
func checkChain(snap *entity.StockSnapshot, chain []*entity.LedgerEntry) []entity.Discrepancy {
	errs := []entity.Discrepancy{}
	expectedPrev := chainhash.Genesis
	running := decimal.Zero
	if snap != nil {
		running = snap.OpeningStock
	}

	for i, e := range chain {
		add := func(field, expected, actual string) {
			errs = append(errs, entity.Discrepancy{
				SequenceNumber: e.SequenceNumber, EntryID: e.ID,
				Field: field, Expected: expected, Actual: actual,
			})
		}

		if want := int64(i + 1); e.SequenceNumber != want {
			add("sequence_number", strconv.FormatInt(want, 10), strconv.FormatInt(e.SequenceNumber, 10))
		}
		if e.PreviousHash != expectedPrev {
			add("previous_hash", expectedPrev, e.PreviousHash)
		}
		recomputed, err := chainhash.DigestVersion(e.HashVersion, hashFields(e))
		switch {
		case err != nil:
			add("hash_version", strconv.Itoa(chainhash.Version), strconv.Itoa(e.HashVersion))
		case recomputed != e.CurrentHash:
			add("current_hash", recomputed, e.CurrentHash)
		}
		if e.QuantityDelta.IsZero() {
			add("quantity_delta", "!= 0", chainhash.FormatQuantity(e.QuantityDelta))
		}
		running = running.Add(e.QuantityDelta)
		if !running.Equal(e.ResultingStock) {
			add("resulting_stock", chainhash.FormatQuantity(running), chainhash.FormatQuantity(e.ResultingStock))
		}
		if e.ResultingStock.IsNegative() {
			add("resulting_stock", ">= 0", chainhash.FormatQuantity(e.ResultingStock))
		}
		expectedPrev = e.CurrentHash
	}

	if snap == nil {
		return errs
	}
	// La cola del snapshot debe apuntar al último eslabón.
	tail := func(field, expected, actual string) {
		errs = append(errs, entity.Discrepancy{
			SequenceNumber: snap.LastSequenceNumber,
			Field:          "snapshot." + field, Expected: expected, Actual: actual,
		})
	}
	expectedStock := snap.OpeningStock
	if n := len(chain); n > 0 {
		expectedStock = chain[n-1].ResultingStock
	}
	if want := int64(len(chain)); snap.LastSequenceNumber != want {
		tail("last_sequence_number", strconv.FormatInt(want, 10), strconv.FormatInt(snap.LastSequenceNumber, 10))
	}
	if snap.LastTransactionHash != expectedPrev {
		tail("last_transaction_hash", expectedPrev, snap.LastTransactionHash)
	}
	if !snap.CurrentStock.Equal(expectedStock) {
		tail("current_stock", chainhash.FormatQuantity(expectedStock), chainhash.FormatQuantity(snap.CurrentStock))
	}
	return errs
}

func reportMessage(r *entity.IntegrityReport) string {
	switch {
	case r.EntriesChecked == 0 && r.Valid:
		return "sin movimientos registrados"
	case r.Valid:
		return fmt.Sprintf("cadena íntegra: %d movimientos verificados", r.EntriesChecked)
	default:
		return fmt.Sprintf("cadena corrupta: %d discrepancias en %d movimientos", len(r.Errors), r.EntriesChecked)
	}
}
