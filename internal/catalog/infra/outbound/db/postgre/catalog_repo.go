package postgres

import (
	"context"
	"database/sql"
	"fmt"

	catalogDomain "github.com/davicafu/minicommerce/internal/catalog/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type CatalogRepoPostgres struct {
	db *sql.DB
}

func NewCatalogRepoPostgres(db *sql.DB) *CatalogRepoPostgres {
	return &CatalogRepoPostgres{db: db}
}

var _ catalogDomain.CatalogRepository = (*CatalogRepoPostgres)(nil)

func (r *CatalogRepoPostgres) GetProduct(ctx context.Context, id int64) (*catalogDomain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT product_id, name, created_at, updated_at FROM products WHERE product_id=$1`, id)

	var p catalogDomain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, catalogDomain.ErrProductNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &p, nil
}

func (r *CatalogRepoPostgres) ListSkus(ctx context.Context, productID int64) ([]catalogDomain.Sku, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sku_id, product_id, stock, version, created_at, updated_at
		 FROM skus WHERE product_id=$1 ORDER BY sku_id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skus []catalogDomain.Sku
	for rows.Next() {
		var s catalogDomain.Sku
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Stock, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		skus = append(skus, s)
	}
	return skus, rows.Err()
}

func (r *CatalogRepoPostgres) SkuExists(ctx context.Context, skuID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM skus WHERE sku_id=$1)`, skuID,
	).Scan(&exists)
	return exists, err
}

// ------------------ Inicialización ------------------

func InitCatalog(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS products (
		product_id BIGSERIAL PRIMARY KEY,
		name VARCHAR(200) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS skus (
		sku_id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products(product_id),
		stock INT NOT NULL,
		version BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`)
	return err
}
