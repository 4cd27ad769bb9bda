package http

import (
	"net/http"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *LedgerHandler
	Products  *ProductHandler
	Metrics     http.Handler // opcional: /metrics
	SwaggerFile string       // opcional: swagger.json servido en /docs
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.SwaggerFile != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: deps.SwaggerFile,
			Path:     "docs",
			Title:    "Stock Ledger API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(entity.RoleAdmin, entity.RoleBodeguero, entity.RoleCocinero)
	adminOnly := RequireRole(entity.RoleAdmin)

	products := api.Group("/products")
	products.Get("/", anyRole, deps.Products.List)
	products.Post("/", adminOnly, deps.Products.Create)

	l := api.Group("/ledger")
	l.Post("/movements", anyRole, deps.Ledger.RecordMovement)
	l.Post("/movements/batch", anyRole, deps.Ledger.RecordBatch)
	l.Post("/verify", adminOnly, deps.Ledger.VerifyAll)

	byProduct := l.Group("/products/:id")
	byProduct.Get("/history", anyRole, deps.Ledger.History)
	byProduct.Get("/snapshot", anyRole, deps.Ledger.Snapshot)
	byProduct.Get("/stock", anyRole, deps.Ledger.CurrentStock)
	byProduct.Post("/verify", RequireRole(entity.RoleAdmin, entity.RoleBodeguero), deps.Ledger.Verify)
	byProduct.Post("/reset", adminOnly, deps.Ledger.Reset)
}
