package mocks

import (
	"context"
	"sync"

	catalogDomain "github.com/davicafu/minicommerce/internal/catalog/domain"
)

// InMemoryCatalogRepo simula el catálogo de productos y SKUs.
type InMemoryCatalogRepo struct {
	Products map[int64]catalogDomain.Product
	Skus     []catalogDomain.Sku
	mu       sync.Mutex
}

func NewInMemoryCatalogRepo() *InMemoryCatalogRepo {
	return &InMemoryCatalogRepo{
		Products: make(map[int64]catalogDomain.Product),
	}
}

var _ catalogDomain.CatalogRepository = (*InMemoryCatalogRepo)(nil)

func (r *InMemoryCatalogRepo) GetProduct(ctx context.Context, id int64) (*catalogDomain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.Products[id]
	if !ok {
		return nil, catalogDomain.ErrProductNotFound
	}
	return &p, nil
}

func (r *InMemoryCatalogRepo) ListSkus(ctx context.Context, productID int64) ([]catalogDomain.Sku, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []catalogDomain.Sku
	for _, s := range r.Skus {
		if s.ProductID == productID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *InMemoryCatalogRepo) SkuExists(ctx context.Context, skuID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.Skus {
		if s.ID == skuID {
			return true, nil
		}
	}
	return false, nil
}
