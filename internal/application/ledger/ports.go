package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxFunc recibe repositorios atados a una misma transacción.
type TxFunc func(
	entries repository.LedgerEntryRepository,
	snapshots repository.StockSnapshotRepository,
	products repository.ProductRepository,
) error

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad del libro: eslabones y snapshot se confirman juntos o ninguno.
type TxRunner interface {
	// Run transacción de escritura; los bloqueos tomados con Lock se liberan al terminar.
	Run(ctx context.Context, fn TxFunc) error
	// RunReadOnly lectura consistente (REPEATABLE READ) para producir reportes de un mismo instante.
	RunReadOnly(ctx context.Context, fn TxFunc) error
}

// Metrics instrumentación del libro (Prometheus en producción, NopMetrics en tests).
type Metrics interface {
	ObserveAppend(movementType entity.MovementType, d time.Duration)
	ObserveBatch(items int, d time.Duration)
	AppendRejected(reason string)
	ObserveVerification(status entity.IntegrityStatus, d time.Duration)
	LedgerReset(deletedEntries int64)
}

// NopMetrics descarta las métricas.
type NopMetrics struct{}

func (NopMetrics) ObserveAppend(entity.MovementType, time.Duration)          {}
func (NopMetrics) ObserveBatch(int, time.Duration)                           {}
func (NopMetrics) AppendRejected(string)                                     {}
func (NopMetrics) ObserveVerification(entity.IntegrityStatus, time.Duration) {}
func (NopMetrics) LedgerReset(int64)                                         {}

// Clock fuente de tiempo inyectable.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }

// stamp normaliza el instante a UTC con precisión de microsegundos (la que persiste PostgreSQL).
func stamp(c Clock) time.Time {
	return c().UTC().Truncate(time.Microsecond)
}
