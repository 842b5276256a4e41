package domain

import (
	"context"
	"errors"
	"time"
)

// ---------- Errores de dominio ----------
var (
	ErrProductNotFound = errors.New("product not found")
)

// Product es un producto del catálogo.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sku es una unidad vendible de un producto, con su stock.
type Sku struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Stock     int       `json:"stock"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductDetail es la vista de producto con sus SKUs.
type ProductDetail struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	Skus      []SkuDetail `json:"skus"`
}

type SkuDetail struct {
	SkuID int64 `json:"skuId"`
	Stock int   `json:"stock"`
}

// ---------- Interfaces (Ports) ----------

// CatalogRepository define las lecturas del catálogo.
type CatalogRepository interface {
	// GetProduct debe devolver ErrProductNotFound si no existe.
	GetProduct(ctx context.Context, id int64) (*Product, error)

	// ListSkus devuelve los SKUs de un producto.
	ListSkus(ctx context.Context, productID int64) ([]Sku, error)

	// SkuExists valida la precondición de creación de pedidos.
	SkuExists(ctx context.Context, skuID int64) (bool, error)
}
