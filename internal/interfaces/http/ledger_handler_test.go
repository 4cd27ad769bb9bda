package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/chainhash"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers: API completa sobre el almacén en memoria
// ──────────────────────────────────────────────────────────────────────────────

type apiFixture struct {
	app   *fiber.App
	store *memory.Store
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore(time.Second)
	require.NoError(t, store.Products().Create(context.Background(),
		&entity.Product{ID: "prod-arroz", SKU: "ARR-01", Name: "Arroz", UnitMeasure: "kg"}))

	log := logger.Nop()
	m := metrics.New()
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger: apphttp.NewLedgerHandler(
			ledger.NewAppendService(store, m, log),
			ledger.NewIntegrityVerifier(store, m, log, 2),
			ledger.NewResetService(store, m, log),
			ledger.NewQueryService(store.Entries(), store.Snapshots(), store.Products()),
			log,
		),
		Products:    apphttp.NewProductHandler(ledger.NewCatalogService(store.Products()), log),
		Metrics:     m.Handler(),
		SwaggerFile: "../../../docs/swagger.json",
		JWTSecret:   testJWTSecret,
	})
	return &apiFixture{app: app, store: store}
}

func (f *apiFixture) do(t *testing.T, method, path, role string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func movement(productID, delta, movementType string) fiber.Map {
	return fiber.Map{
		"product_id":     productID,
		"quantity_delta": delta,
		"movement_type":  movementType,
		"description":    "prueba",
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestLedgerAPI_RegistrarMovimiento(t *testing.T) {
	f := newAPI(t)

	resp := f.do(t, http.MethodPost, "/api/ledger/movements", "bodeguero", movement("prod-arroz", "5", "IN"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decode[dto.LedgerEntryResponse](t, resp)

	assert.Equal(t, int64(1), entry.SequenceNumber)
	assert.Equal(t, "5.000", entry.ResultingStock)
	assert.Equal(t, chainhash.Genesis, entry.PreviousHash)
	assert.Equal(t, testUserID, entry.UserID, "el usuario sale del token")
	assert.Len(t, entry.CurrentHash, 64)
}

func TestLedgerAPI_StockInsuficiente_409(t *testing.T) {
	f := newAPI(t)
	f.do(t, http.MethodPost, "/api/ledger/movements", "bodeguero", movement("prod-arroz", "2", "IN")).Body.Close()

	resp := f.do(t, http.MethodPost, "/api/ledger/movements", "cocinero", movement("prod-arroz", "-3", "OUT"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "INSUFFICIENT_STOCK", body.Code)
}

func TestLedgerAPI_Errores(t *testing.T) {
	f := newAPI(t)
	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"producto inexistente", movement("prod-x", "1", "IN"), http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"cantidad cero", movement("prod-arroz", "0", "IN"), http.StatusBadRequest, "VALIDATION"},
		{"tipo desconocido", movement("prod-arroz", "1", "TRANSFER"), http.StatusBadRequest, "VALIDATION"},
		{"entrada negativa", movement("prod-arroz", "-1", "IN"), http.StatusBadRequest, "VALIDATION"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/api/ledger/movements", "admin", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decode[dto.ErrorResponse](t, resp).Code)
		})
	}
}

func TestLedgerAPI_LoteAtomico(t *testing.T) {
	f := newAPI(t)

	ok := f.do(t, http.MethodPost, "/api/ledger/movements/batch", "bodeguero", fiber.Map{
		"movements": []fiber.Map{
			movement("prod-arroz", "10", "IN"),
			movement("prod-arroz", "-4", "OUT"),
		},
	})
	require.Equal(t, http.StatusCreated, ok.StatusCode)
	entries := decode[[]dto.LedgerEntryResponse](t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, entries[0].CurrentHash, entries[1].PreviousHash)

	fail := f.do(t, http.MethodPost, "/api/ledger/movements/batch", "bodeguero", fiber.Map{
		"movements": []fiber.Map{
			movement("prod-arroz", "1", "IN"),
			movement("prod-arroz", "-100", "OUT"),
		},
	})
	assert.Equal(t, http.StatusConflict, fail.StatusCode)
	batchErr := decode[dto.BatchErrorResponse](t, fail)
	assert.Equal(t, 1, batchErr.Index)
	assert.Equal(t, "prod-arroz", batchErr.ProductID)

	stock := decode[dto.CurrentStockResponse](t, f.do(t, http.MethodGet, "/api/ledger/products/prod-arroz/stock", "cocinero", nil))
	assert.Equal(t, "6.000", stock.CurrentStock, "el lote fallido no deja rastro")
}

// ──────────────────────────────────────────────────────────────────────────────
// Lecturas
// ──────────────────────────────────────────────────────────────────────────────

func TestLedgerAPI_HistorialYSnapshot(t *testing.T) {
	f := newAPI(t)
	for _, d := range []string{"3", "2", "1"} {
		f.do(t, http.MethodPost, "/api/ledger/movements", "bodeguero", movement("prod-arroz", d, "IN")).Body.Close()
	}

	hist := decode[dto.HistoryResponse](t, f.do(t, http.MethodGet, "/api/ledger/products/prod-arroz/history?limit=2&offset=1", "cocinero", nil))
	require.Len(t, hist.Entries, 2)
	assert.Equal(t, int64(2), hist.Entries[0].SequenceNumber)
	assert.Equal(t, 2, hist.Page.Limit)

	snap := decode[dto.SnapshotResponse](t, f.do(t, http.MethodGet, "/api/ledger/products/prod-arroz/snapshot", "cocinero", nil))
	assert.Equal(t, "6.000", snap.CurrentStock)
	assert.Equal(t, int64(3), snap.LastSequenceNumber)
	assert.Equal(t, "UNVERIFIED", snap.IntegrityStatus)
}

func TestLedgerAPI_StockSinHistorial_404(t *testing.T) {
	f := newAPI(t)
	resp := f.do(t, http.MethodGet, "/api/ledger/products/prod-arroz/stock", "cocinero", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

// ──────────────────────────────────────────────────────────────────────────────
// Verificación y reset
// ──────────────────────────────────────────────────────────────────────────────

func TestLedgerAPI_VerificarDetectaManipulacion(t *testing.T) {
	f := newAPI(t)
	f.do(t, http.MethodPost, "/api/ledger/movements", "bodeguero", movement("prod-arroz", "3", "IN")).Body.Close()

	report := decode[dto.IntegrityReportResponse](t, f.do(t, http.MethodPost, "/api/ledger/products/prod-arroz/verify", "bodeguero", nil))
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)

	require.NoError(t, f.store.Tamper("prod-arroz", 1, func(e *entity.LedgerEntry) { e.Description = "otra cosa" }))

	all := decode[dto.VerifyAllResponse](t, f.do(t, http.MethodPost, "/api/ledger/verify", "admin", nil))
	assert.Equal(t, 1, all.Total)
	assert.Equal(t, 1, all.Invalid)
	require.NotEmpty(t, all.Reports[0].Errors)
	assert.Equal(t, "current_hash", all.Reports[0].Errors[0].Field)
}

func TestLedgerAPI_ResetSoloAdmin(t *testing.T) {
	f := newAPI(t)
	f.do(t, http.MethodPost, "/api/ledger/movements", "bodeguero", movement("prod-arroz", "4", "IN")).Body.Close()

	denied := f.do(t, http.MethodPost, "/api/ledger/products/prod-arroz/reset", "bodeguero", nil)
	assert.Equal(t, http.StatusForbidden, denied.StatusCode)
	denied.Body.Close()

	resp := f.do(t, http.MethodPost, "/api/ledger/products/prod-arroz/reset", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[dto.ResetResponse](t, resp)
	assert.Equal(t, int64(1), res.DeletedEntries)
	assert.Equal(t, "4.000", res.CarriedStock)

	next := decode[dto.LedgerEntryResponse](t, f.do(t, http.MethodPost, "/api/ledger/movements", "bodeguero", movement("prod-arroz", "1", "IN")))
	assert.Equal(t, int64(1), next.SequenceNumber)
	assert.Equal(t, "5.000", next.ResultingStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Catálogo y rutas públicas
// ──────────────────────────────────────────────────────────────────────────────

func TestProductAPI_CrearSoloAdmin(t *testing.T) {
	f := newAPI(t)
	req := fiber.Map{"id": "prod-sal", "name": "Sal", "unit_measure": "kg"}

	denied := f.do(t, http.MethodPost, "/api/products", "cocinero", req)
	assert.Equal(t, http.StatusForbidden, denied.StatusCode)
	denied.Body.Close()

	created := f.do(t, http.MethodPost, "/api/products", "admin", req)
	assert.Equal(t, http.StatusCreated, created.StatusCode)
	created.Body.Close()

	dup := f.do(t, http.MethodPost, "/api/products", "admin", req)
	assert.Equal(t, http.StatusConflict, dup.StatusCode)
	dup.Body.Close()

	list := decode[[]dto.ProductResponse](t, f.do(t, http.MethodGet, "/api/products", "cocinero", nil))
	assert.Len(t, list, 2)
}

func TestRutasPublicas(t *testing.T) {
	f := newAPI(t)
	f.do(t, http.MethodPost, "/api/ledger/movements", "bodeguero", movement("prod-arroz", "1", "IN")).Body.Close()

	health := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, health.StatusCode)
	health.Body.Close()

	resp := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `stock_ledger_appends_total{movement_type="IN"} 1`)

	noToken := f.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, noToken.StatusCode)
	noToken.Body.Close()
}

// La documentación servida en /docs describe exactamente las rutas registradas.
func TestDocumentacionSwagger(t *testing.T) {
	f := newAPI(t)

	ui := f.do(t, http.MethodGet, "/docs", "", nil)
	assert.Equal(t, http.StatusOK, ui.StatusCode)
	ui.Body.Close()

	var spec struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	resp := f.do(t, http.MethodGet, "/docs/swagger.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&spec))
	require.NotEmpty(t, spec.Paths)

	routes := make(map[string]bool)
	for _, r := range f.app.GetRoutes(true) {
		routes[r.Method+" "+strings.TrimSuffix(r.Path, "/")] = true
	}
	for path, ops := range spec.Paths {
		routed := strings.ReplaceAll(path, "{id}", ":id")
		for method := range ops {
			assert.True(t, routes[strings.ToUpper(method)+" "+routed], "%s %s documentada pero no registrada", method, path)
		}
	}
}
