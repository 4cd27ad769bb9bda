package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stock-ledger/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testIssuer    = "stock-ledger-test"
	testExpMin    = 60
)

// tokenForRole genera un JWT con el rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

// actorApp expone el actor que ven los handlers tras AuthMiddleware + RequireRole.
func actorApp(allowedRoles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/whoami",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireRole(allowedRoles...),
		func(c *fiber.Ctx) error {
			actor := apphttp.GetActor(c)
			return c.JSON(fiber.Map{"user_id": actor.UserID, "role": actor.Role, "admin": actor.IsAdmin()})
		},
	)
	return app
}

func get(t *testing.T, app *fiber.App, path, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// ──────────────────────────────────────────────────────────────────────────────
// Autenticación
// ──────────────────────────────────────────────────────────────────────────────

func TestAuth_CredencialesRechazadas(t *testing.T) {
	noRole, err := pkgjwt.Generate(testJWTSecret, testUserID, "", testIssuer, testExpMin)
	require.NoError(t, err)
	expired, err := pkgjwt.Generate(testJWTSecret, testUserID, entity.RoleAdmin, testIssuer, -1)
	require.NoError(t, err)
	foreign, err := pkgjwt.Generate("otro-secret-completamente-distinto", testUserID, entity.RoleAdmin, testIssuer, testExpMin)
	require.NoError(t, err)

	cases := map[string]struct {
		header string
		code   string
	}{
		"sin header":    {"", "MISSING_TOKEN"},
		"sin Bearer":    {"Token abc", "INVALID_TOKEN"},
		"malformado":    {"Bearer token.invalido.aqui", "INVALID_TOKEN"},
		"expirado":      {"Bearer " + expired, "INVALID_TOKEN"},
		"otro secreto":  {"Bearer " + foreign, "INVALID_TOKEN"},
		"token sin rol": {"Bearer " + noRole, "MISSING_ROLE"},
	}
	app := actorApp(entity.RoleAdmin)
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := get(t, app, "/whoami", tc.header)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), tc.code)
		})
	}
}

func TestAuth_ActorDesdeClaims(t *testing.T) {
	resp := get(t, actorApp(entity.RoleAdmin, entity.RoleBodeguero), "/whoami", tokenForRole(t, entity.RoleBodeguero))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
		Admin  bool   `json:"admin"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testUserID, body.UserID)
	assert.Equal(t, entity.RoleBodeguero, body.Role)
	assert.False(t, body.Admin)
}

// ──────────────────────────────────────────────────────────────────────────────
// Permisos por ruta del libro
// ──────────────────────────────────────────────────────────────────────────────

// Ninguna ruta protegida se alcanza sin token.
func TestRutasDelLibro_RequierenToken(t *testing.T) {
	f := newAPI(t)
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/products"},
		{http.MethodPost, "/api/ledger/movements"},
		{http.MethodPost, "/api/ledger/verify"},
		{http.MethodGet, "/api/ledger/products/prod-arroz/history"},
		{http.MethodPost, "/api/ledger/products/prod-arroz/reset"},
	} {
		resp := f.do(t, r.method, r.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", r.method, r.path)
		resp.Body.Close()
	}
}

func TestRutasDelLibro_PermisosPorRol(t *testing.T) {
	type route struct {
		method, path string
		body         any
	}
	var (
		record    = route{http.MethodPost, "/api/ledger/movements", movement("prod-arroz", "1", "IN")}
		history   = route{http.MethodGet, "/api/ledger/products/prod-arroz/history", nil}
		stock     = route{http.MethodGet, "/api/ledger/products/prod-arroz/stock", nil}
		verify    = route{http.MethodPost, "/api/ledger/products/prod-arroz/verify", nil}
		verifyAll = route{http.MethodPost, "/api/ledger/verify", nil}
		reset     = route{http.MethodPost, "/api/ledger/products/prod-arroz/reset", nil}
	)
	cases := []struct {
		name    string
		r       route
		role    string
		allowed bool
	}{
		{"cocinero registra", record, entity.RoleCocinero, true},
		{"cocinero consulta historial", history, entity.RoleCocinero, true},
		{"cocinero consulta stock", stock, entity.RoleCocinero, true},
		{"cocinero no verifica", verify, entity.RoleCocinero, false},
		{"bodeguero verifica", verify, entity.RoleBodeguero, true},
		{"admin verifica", verify, entity.RoleAdmin, true},
		{"bodeguero no verifica todo", verifyAll, entity.RoleBodeguero, false},
		{"admin verifica todo", verifyAll, entity.RoleAdmin, true},
		{"cocinero no reinicia", reset, entity.RoleCocinero, false},
		{"bodeguero no reinicia", reset, entity.RoleBodeguero, false},
		{"admin reinicia", reset, entity.RoleAdmin, true},
		{"rol desconocido", history, "vendedor", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAPI(t)
			f.do(t, http.MethodPost, "/api/ledger/movements", entity.RoleBodeguero, movement("prod-arroz", "5", "IN")).Body.Close()

			resp := f.do(t, tc.r.method, tc.r.path, tc.role, tc.r.body)
			defer resp.Body.Close()
			if !tc.allowed {
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
				body, _ := io.ReadAll(resp.Body)
				assert.Contains(t, string(body), "FORBIDDEN")
				// Un rechazo por rol no deja rastro en la cadena.
				n, err := f.store.Entries().Count(context.Background(), "prod-arroz")
				require.NoError(t, err)
				assert.Equal(t, int64(1), n)
				return
			}
			assert.Less(t, resp.StatusCode, 300, "%s %s como %s", tc.r.method, tc.r.path, tc.role)
		})
	}
}
