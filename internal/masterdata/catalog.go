package masterdata

import (
	"context"
	"errors"

	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
)

// Catalog adapts the product repository to the invoice module's catalog port.
type Catalog struct {
	service *Service
}

// NewCatalog builds the adapter.
func NewCatalog(service *Service) *Catalog {
	return &Catalog{service: service}
}

// Product resolves a product for invoice line pricing. A missing product is
// reported as nil rather than an error so the caller decides how to react.
func (c *Catalog) Product(ctx context.Context, id int64) (*invoices.CatalogProduct, error) {
	p, err := c.service.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoices.CatalogProduct{
		ID:         p.ID,
		Name:       p.Name,
		UnitPrice:  p.UnitPrice,
		UnitWeight: p.UnitWeight,
		TaxRate:    p.TaxRate,
		Active:     p.Active,
	}, nil
}
