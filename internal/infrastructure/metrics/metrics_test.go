package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestLedger_Contadores(t *testing.T) {
	m := New()

	m.ObserveAppend(entity.MovementTypeIN, 3*time.Millisecond)
	m.ObserveAppend(entity.MovementTypeIN, time.Millisecond)
	m.ObserveAppend(entity.MovementTypeOUT, time.Millisecond)
	m.AppendRejected("insufficient_stock")
	m.ObserveBatch(4, 10*time.Millisecond)
	m.ObserveVerification(entity.IntegrityCorrupted, time.Millisecond)
	m.LedgerReset(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.appends.WithLabelValues("IN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.appends.WithLabelValues("OUT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("CORRUPTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resets))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.resetDeletedSum))
}

func TestLedger_Handler(t *testing.T) {
	m := New()
	m.ObserveAppend(entity.MovementTypeADJUSTMENT, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `stock_ledger_appends_total{movement_type="ADJUSTMENT"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
