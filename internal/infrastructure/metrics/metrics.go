// Package metrics instrumenta el libro de stock con Prometheus.
//
// Se usa un registro propio (no el global) para que cada proceso y cada test tenga sus contadores:
//
//	m := metrics.New()
//	appender := ledger.NewAppendService(runner, m, log)
//	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ ledger.Metrics = (*Ledger)(nil)

const namespace = "stock_ledger"

// Ledger colectores del libro más los del runtime de Go.
type Ledger struct {
	registry *prometheus.Registry

	appends         *prometheus.CounterVec
	appendDuration  *prometheus.HistogramVec
	rejections      *prometheus.CounterVec
	batches         prometheus.Counter
	batchItems      prometheus.Histogram
	batchDuration   prometheus.Histogram
	verifications   *prometheus.CounterVec
	verifyDuration  prometheus.Histogram
	resets          prometheus.Counter
	resetDeletedSum prometheus.Counter
}

// New registra los colectores en un registro nuevo.
func New() *Ledger {
	m := &Ledger{
		registry: prometheus.NewRegistry(),
		appends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "appends_total",
			Help: "Movimientos agregados a la cadena, por tipo.",
		}, []string{"movement_type"}),
		appendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "append_duration_seconds",
			Help:    "Duración de RecordStockMovement (incluye espera por el bloqueo del producto).",
			Buckets: prometheus.DefBuckets,
		}, []string{"movement_type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "append_rejections_total",
			Help: "Movimientos rechazados, por motivo.",
		}, []string{"reason"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "batches_total",
			Help: "Lotes confirmados.",
		}),
		batchItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "batch_items",
			Help:    "Movimientos por lote confirmado.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "batch_duration_seconds",
			Help:    "Duración de ProcessBatchMovements.",
			Buckets: prometheus.DefBuckets,
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "verifications_total",
			Help: "Verificaciones de cadena, por resultado.",
		}, []string{"status"}),
		verifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "verification_duration_seconds",
			Help:    "Duración de la verificación de una cadena.",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 30},
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "resets_total",
			Help: "Cadenas reiniciadas por un administrador.",
		}),
		resetDeletedSum: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reset_deleted_entries_total",
			Help: "Eslabones eliminados por resets.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.appends, m.appendDuration, m.rejections,
		m.batches, m.batchItems, m.batchDuration,
		m.verifications, m.verifyDuration,
		m.resets, m.resetDeletedSum,
	)
	return m
}

// Handler expone el registro en formato de exposición de Prometheus.
func (m *Ledger) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry para registrar colectores adicionales (p. ej. los del pool de conexiones).
func (m *Ledger) Registry() *prometheus.Registry { return m.registry }

func (m *Ledger) ObserveAppend(mt entity.MovementType, d time.Duration) {
	m.appends.WithLabelValues(string(mt)).Inc()
	m.appendDuration.WithLabelValues(string(mt)).Observe(d.Seconds())
}

func (m *Ledger) ObserveBatch(items int, d time.Duration) {
	m.batches.Inc()
	m.batchItems.Observe(float64(items))
	m.batchDuration.Observe(d.Seconds())
}

func (m *Ledger) AppendRejected(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Ledger) ObserveVerification(status entity.IntegrityStatus, d time.Duration) {
	m.verifications.WithLabelValues(string(status)).Inc()
	m.verifyDuration.Observe(d.Seconds())
}

func (m *Ledger) LedgerReset(deleted int64) {
	m.resets.Inc()
	m.resetDeletedSum.Add(float64(deleted))
}
