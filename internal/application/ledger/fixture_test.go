package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test: servicios del libro sobre el almacén en memoria.
// ──────────────────────────────────────────────────────────────────────────────

const (
	prodHarina = "prod-harina"
	prodAzucar = "prod-azucar"
	prodLeche  = "prod-leche"
)

var admin = entity.Actor{UserID: "user-admin", Role: entity.RoleAdmin}

type fixture struct {
	store    *memory.Store
	appender *ledger.AppendService
	verifier *ledger.IntegrityVerifier
	resetter *ledger.ResetService
	queries  *ledger.QueryService
}

// fakeClock avanza un segundo en cada lectura.
func fakeClock() ledger.Clock {
	t := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	ch := make(chan time.Time, 1)
	ch <- t
	return func() time.Time {
		now := <-ch
		ch <- now.Add(time.Second)
		return now
	}
}

func newFixture(t *testing.T, lockTimeout time.Duration) *fixture {
	t.Helper()
	store := memory.NewStore(lockTimeout)
	ctx := context.Background()
	for _, p := range []*entity.Product{
		{ID: prodHarina, SKU: "HAR-01", Name: "Harina de trigo", UnitMeasure: "kg"},
		{ID: prodAzucar, SKU: "AZU-01", Name: "Azúcar", UnitMeasure: "kg"},
		{ID: prodLeche, SKU: "LEC-01", Name: "Leche entera", UnitMeasure: "l"},
	} {
		require.NoError(t, store.Products().Create(ctx, p))
	}
	log := logger.Nop()
	clock := fakeClock()
	return &fixture{
		store:    store,
		appender: ledger.NewAppendService(store, nil, log).WithClock(clock),
		verifier: ledger.NewIntegrityVerifier(store, nil, log, 2).WithClock(clock),
		resetter: ledger.NewResetService(store, nil, log).WithClock(clock),
		queries:  ledger.NewQueryService(store.Entries(), store.Snapshots(), store.Products()),
	}
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func in(productID, delta string) ledger.MovementInput {
	return ledger.MovementInput{
		ProductID:     productID,
		QuantityDelta: qty(delta),
		MovementType:  entity.MovementTypeIN,
		Description:   "recepción de pedido",
		UserID:        "user-bodega",
		OrderID:       "order-1",
	}
}

func out(productID, delta string) ledger.MovementInput {
	return ledger.MovementInput{
		ProductID:     productID,
		QuantityDelta: qty(delta),
		MovementType:  entity.MovementTypeOUT,
		Description:   "receta cocinada",
		UserID:        "user-cocina",
	}
}

func (f *fixture) mustRecord(t *testing.T, mv ledger.MovementInput) *entity.LedgerEntry {
	t.Helper()
	e, err := f.appender.RecordStockMovement(context.Background(), mv)
	require.NoError(t, err)
	return e
}

func (f *fixture) history(t *testing.T, productID string) []*entity.LedgerEntry {
	t.Helper()
	list, err := f.queries.GetHistory(context.Background(), productID, 0, 0)
	require.NoError(t, err)
	return list
}
