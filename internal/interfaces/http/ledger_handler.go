package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const maxPageLimit = 500

// LedgerHandler expone el libro de stock (protegido).
type LedgerHandler struct {
	appender *ledger.AppendService
	verifier *ledger.IntegrityVerifier
	resetter *ledger.ResetService
	queries  *ledger.QueryService
	log      *logger.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(
	appender *ledger.AppendService,
	verifier *ledger.IntegrityVerifier,
	resetter *ledger.ResetService,
	queries *ledger.QueryService,
	log *logger.Logger,
) *LedgerHandler {
	return &LedgerHandler{
		appender: appender,
		verifier: verifier,
		resetter: resetter,
		queries:  queries,
		log:      log.Component("http.ledger"),
	}
}

func toMovementInput(req dto.RecordMovementRequest, userID string) ledger.MovementInput {
	return ledger.MovementInput{
		ProductID:     req.ProductID,
		QuantityDelta: req.QuantityDelta,
		MovementType:  entity.MovementType(req.MovementType),
		Description:   req.Description,
		UserID:        userID,
		OrderID:       req.OrderID,
	}
}

// RecordMovement godoc
// @Summary      Registrar un movimiento en la cadena del producto
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordMovementRequest  true  "product_id, quantity_delta (con signo), movement_type"
// @Success      201   {object}  dto.LedgerEntryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/ledger/movements [post]
func (h *LedgerHandler) RecordMovement(c *fiber.Ctx) error {
	var req dto.RecordMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	entry, err := h.appender.RecordStockMovement(c.UserContext(), toMovementInput(req, GetUserID(c)))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToLedgerEntryResponse(entry))
}

// RecordBatch godoc
// @Summary      Registrar un lote atómico de movimientos
// @Description  Todos los movimientos se confirman juntos o ninguno (p. ej. los ingredientes de una receta).
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchMovementsRequest  true  "movements"
// @Success      201   {array}   dto.LedgerEntryResponse
// @Failure      400   {object}  dto.BatchErrorResponse
// @Failure      409   {object}  dto.BatchErrorResponse
// @Router       /api/ledger/movements/batch [post]
func (h *LedgerHandler) RecordBatch(c *fiber.Ctx) error {
	var req dto.BatchMovementsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	userID := GetUserID(c)
	items := make([]ledger.MovementInput, 0, len(req.Movements))
	for _, m := range req.Movements {
		items = append(items, toMovementInput(m, userID))
	}
	entries, err := h.appender.ProcessBatchMovements(c.UserContext(), items)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToLedgerEntryResponses(entries))
}

// History godoc
// @Summary      Historial del producto ordenado por secuencia
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "product_id"
// @Param        limit   query  int     false  "máximo de eslabones (def. 20)"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {object}  dto.HistoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/products/{id}/history [get]
func (h *LedgerHandler) History(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "paginación inválida"})
	}
	page.DefaultPage()
	if page.Limit > maxPageLimit {
		page.Limit = maxPageLimit
	}
	productID := c.Params("id")
	entries, err := h.queries.GetHistory(c.UserContext(), productID, page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.HistoryResponse{
		ProductID: productID,
		Entries:   dto.ToLedgerEntryResponses(entries),
		Page:      dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

// Snapshot godoc
// @Summary      Snapshot del producto (cola de la cadena y estado de integridad)
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "product_id"
// @Success      200  {object}  dto.SnapshotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/products/{id}/snapshot [get]
func (h *LedgerHandler) Snapshot(c *fiber.Ctx) error {
	snap, err := h.queries.GetSnapshot(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToSnapshotResponse(snap))
}

// CurrentStock godoc
// @Summary      Stock actual (lectura O(1))
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "product_id"
// @Success      200  {object}  dto.CurrentStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/products/{id}/stock [get]
func (h *LedgerHandler) CurrentStock(c *fiber.Ctx) error {
	productID := c.Params("id")
	stock, err := h.queries.GetCurrentStock(c.UserContext(), productID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.CurrentStockResponse{ProductID: productID, CurrentStock: stock.StringFixed(3)})
}

// Verify godoc
// @Summary      Verificar la integridad de la cadena de un producto
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "product_id"
// @Success      200  {object}  dto.IntegrityReportResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/products/{id}/verify [post]
func (h *LedgerHandler) Verify(c *fiber.Ctx) error {
	report, err := h.verifier.VerifyChainIntegrity(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToIntegrityReportResponse(report))
}

// VerifyAll godoc
// @Summary      Verificar todas las cadenas
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.VerifyAllResponse
// @Router       /api/ledger/verify [post]
func (h *LedgerHandler) VerifyAll(c *fiber.Ctx) error {
	reports, err := h.verifier.VerifyAllChains(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ToVerifyAllResponse(reports))
}

// Reset godoc
// @Summary      Reiniciar la cadena de un producto (irreversible, solo admin)
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "product_id"
// @Success      200  {object}  dto.ResetResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/products/{id}/reset [post]
func (h *LedgerHandler) Reset(c *fiber.Ctx) error {
	res, err := h.resetter.ResetProductLedger(c.UserContext(), c.Params("id"), GetActor(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ResetResponse{
		ProductID:      res.ProductID,
		DeletedEntries: res.DeletedEntries,
		CarriedStock:   res.CarriedStock,
		ResetAt:        res.ResetAt,
	})
}
