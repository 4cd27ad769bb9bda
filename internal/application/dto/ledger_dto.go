package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RecordMovementRequest cuerpo para registrar un movimiento. El usuario sale del token.
type RecordMovementRequest struct {
	ProductID     string          `json:"product_id"`
	QuantityDelta decimal.Decimal `json:"quantity_delta"`
	MovementType  string          `json:"movement_type"` // IN | OUT | ADJUSTMENT
	Description   string          `json:"description"`
	OrderID       string          `json:"order_id,omitempty"`
}

// BatchMovementsRequest lote atómico (p. ej. todos los ingredientes de una receta).
type BatchMovementsRequest struct {
	Movements []RecordMovementRequest `json:"movements"`
}

// LedgerEntryResponse un eslabón de la cadena.
type LedgerEntryResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	SequenceNumber int64     `json:"sequence_number"`
	QuantityDelta  string    `json:"quantity_delta"`
	ResultingStock string    `json:"resulting_stock"`
	MovementType   string    `json:"movement_type"`
	Description    string    `json:"description"`
	PreviousHash   string    `json:"previous_hash"`
	CurrentHash    string    `json:"current_hash"`
	HashVersion    int       `json:"hash_version"`
	Timestamp      time.Time `json:"timestamp"`
	UserID         string    `json:"user_id,omitempty"`
	OrderID        string    `json:"order_id,omitempty"`
}

// HistoryResponse página del historial de un producto.
type HistoryResponse struct {
	ProductID string                `json:"product_id"`
	Entries   []LedgerEntryResponse `json:"entries"`
	Page      PageResponse          `json:"page"`
}

// SnapshotResponse estado acumulado de un producto.
type SnapshotResponse struct {
	ProductID           string     `json:"product_id"`
	CurrentStock        string     `json:"current_stock"`
	OpeningStock        string     `json:"opening_stock"`
	LastTransactionHash string     `json:"last_transaction_hash"`
	LastSequenceNumber  int64      `json:"last_sequence_number"`
	LastUpdated         time.Time  `json:"last_updated"`
	LastVerified        *time.Time `json:"last_verified,omitempty"`
	IntegrityStatus     string     `json:"integrity_status"`
}

// CurrentStockResponse lectura O(1) del stock.
type CurrentStockResponse struct {
	ProductID    string `json:"product_id"`
	CurrentStock string `json:"current_stock"`
}

// IntegrityReportResponse resultado de verificar una cadena.
type IntegrityReportResponse struct {
	ProductID      string               `json:"product_id"`
	ProductName    string               `json:"product_name,omitempty"`
	Valid          bool                 `json:"valid"`
	Message        string               `json:"message"`
	Errors         []entity.Discrepancy `json:"errors"`
	EntriesChecked int                  `json:"entries_checked"`
	VerifiedAt     time.Time            `json:"verified_at"`
}

// VerifyAllResponse resumen de la verificación global.
type VerifyAllResponse struct {
	Total   int                       `json:"total"`
	Invalid int                       `json:"invalid"`
	Reports []IntegrityReportResponse `json:"reports"`
}

// ResetResponse resultado del reset administrativo.
type ResetResponse struct {
	ProductID      string    `json:"product_id"`
	DeletedEntries int64     `json:"deleted_entries"`
	CarriedStock   string    `json:"carried_stock"`
	ResetAt        time.Time `json:"reset_at"`
}

// CreateProductRequest alta de producto en el catálogo.
type CreateProductRequest struct {
	ID          string `json:"id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	UnitMeasure string `json:"unit_measure"`
}

// ProductResponse producto del catálogo.
type ProductResponse struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	UnitMeasure string    `json:"unit_measure"`
	CreatedAt   time.Time `json:"created_at"`
}

// BatchErrorResponse error de lote con el ítem culpable.
type BatchErrorResponse struct {
	ErrorResponse
	Index     int    `json:"index"`
	ProductID string `json:"product_id"`
}

// ToLedgerEntryResponse mapea un eslabón; las cantidades salen con 3 decimales fijos.
func ToLedgerEntryResponse(e *entity.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:             e.ID,
		ProductID:      e.ProductID,
		SequenceNumber: e.SequenceNumber,
		QuantityDelta:  e.QuantityDelta.StringFixed(3),
		ResultingStock: e.ResultingStock.StringFixed(3),
		MovementType:   string(e.MovementType),
		Description:    e.Description,
		PreviousHash:   e.PreviousHash,
		CurrentHash:    e.CurrentHash,
		HashVersion:    e.HashVersion,
		Timestamp:      e.Timestamp,
		UserID:         e.UserID,
		OrderID:        e.OrderID,
	}
}

// ToLedgerEntryResponses mapea una lista (nunca nil, para serializar []).
func ToLedgerEntryResponses(list []*entity.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, ToLedgerEntryResponse(e))
	}
	return out
}

func ToSnapshotResponse(s *entity.StockSnapshot) SnapshotResponse {
	return SnapshotResponse{
		ProductID:           s.ProductID,
		CurrentStock:        s.CurrentStock.StringFixed(3),
		OpeningStock:        s.OpeningStock.StringFixed(3),
		LastTransactionHash: s.LastTransactionHash,
		LastSequenceNumber:  s.LastSequenceNumber,
		LastUpdated:         s.LastUpdated,
		LastVerified:        s.LastVerified,
		IntegrityStatus:     string(s.IntegrityStatus),
	}
}

func ToIntegrityReportResponse(r *entity.IntegrityReport) IntegrityReportResponse {
	errs := r.Errors
	if errs == nil {
		errs = []entity.Discrepancy{}
	}
	return IntegrityReportResponse{
		ProductID:      r.ProductID,
		ProductName:    r.ProductName,
		Valid:          r.Valid,
		Message:        r.Message,
		Errors:         errs,
		EntriesChecked: r.EntriesChecked,
		VerifiedAt:     r.VerifiedAt,
	}
}

func ToVerifyAllResponse(reports []*entity.IntegrityReport) VerifyAllResponse {
	resp := VerifyAllResponse{Total: len(reports), Reports: make([]IntegrityReportResponse, 0, len(reports))}
	for _, r := range reports {
		if !r.Valid {
			resp.Invalid++
		}
		resp.Reports = append(resp.Reports, ToIntegrityReportResponse(r))
	}
	return resp
}

func ToProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{ID: p.ID, SKU: p.SKU, Name: p.Name, UnitMeasure: p.UnitMeasure, CreatedAt: p.CreatedAt}
}
