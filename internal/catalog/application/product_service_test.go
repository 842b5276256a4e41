package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/minicommerce/internal/catalog/domain"
	"github.com/davicafu/minicommerce/tests/mocks"
)

func seededRepo() *mocks.InMemoryCatalogRepo {
	repo := mocks.NewInMemoryCatalogRepo()
	repo.Products[1] = domain.Product{ID: 1, Name: "Taza de cerámica"}
	repo.Skus = []domain.Sku{
		{ID: 10, ProductID: 1, Stock: 5},
		{ID: 11, ProductID: 1, Stock: 0},
		{ID: 20, ProductID: 2, Stock: 3},
	}
	return repo
}

func TestGetProductDetail(t *testing.T) {
	service := NewProductQueryService(seededRepo())

	detail, err := service.GetProductDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.ProductID)
	assert.Equal(t, "Taza de cerámica", detail.Name)
	require.Len(t, detail.Skus, 2)
	assert.Equal(t, int64(10), detail.Skus[0].SkuID)
	assert.Equal(t, 5, detail.Skus[0].Stock)
}

func TestGetProductDetail_NotFound(t *testing.T) {
	service := NewProductQueryService(seededRepo())

	_, err := service.GetProductDetail(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestSkuExists(t *testing.T) {
	service := NewProductQueryService(seededRepo())

	ok, err := service.SkuExists(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.SkuExists(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, ok)
}
