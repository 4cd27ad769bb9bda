package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// CatalogService alta y listado de los productos cuyo stock lleva el libro.
type CatalogService struct {
	products repository.ProductRepository
}

func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

// CreateProduct registra un producto; el ID lo elige el llamador (lo comparte con el inventario).
func (s *CatalogService) CreateProduct(ctx context.Context, p *entity.Product) error {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" || p.Name == "" {
		return fmt.Errorf("%w: id y name son requeridos", domain.ErrInvalidInput)
	}
	return s.products.Create(ctx, p)
}

// ListProducts lista el catálogo por ID.
func (s *CatalogService) ListProducts(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	return s.products.List(ctx, limit, offset)
}
