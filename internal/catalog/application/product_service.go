package application

import (
	"context"

	"github.com/davicafu/minicommerce/internal/catalog/domain"
)

// ProductQueryService resuelve las lecturas del catálogo.
type ProductQueryService struct {
	repo domain.CatalogRepository
}

func NewProductQueryService(repo domain.CatalogRepository) *ProductQueryService {
	return &ProductQueryService{repo: repo}
}

// GetProductDetail devuelve el producto con sus SKUs y stock.
func (s *ProductQueryService) GetProductDetail(ctx context.Context, productID int64) (*domain.ProductDetail, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	skus, err := s.repo.ListSkus(ctx, productID)
	if err != nil {
		return nil, err
	}

	detail := &domain.ProductDetail{
		ProductID: product.ID,
		Name:      product.Name,
		Skus:      make([]domain.SkuDetail, 0, len(skus)),
	}
	for _, sku := range skus {
		detail.Skus = append(detail.Skus, domain.SkuDetail{SkuID: sku.ID, Stock: sku.Stock})
	}

	return detail, nil
}

// SkuExists delega en el repositorio; lo consume el creador de pedidos.
func (s *ProductQueryService) SkuExists(ctx context.Context, skuID int64) (bool, error) {
	return s.repo.SkuExists(ctx, skuID)
}
