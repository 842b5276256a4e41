package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	catalogDomain "github.com/davicafu/minicommerce/internal/catalog/domain"
)

// CatalogRepoSQLite es la variante para despliegue local sin Postgres.
type CatalogRepoSQLite struct {
	db *sql.DB
}

func NewCatalogRepoSQLite(db *sql.DB) *CatalogRepoSQLite {
	return &CatalogRepoSQLite{db: db}
}

var _ catalogDomain.CatalogRepository = (*CatalogRepoSQLite)(nil)

func (r *CatalogRepoSQLite) GetProduct(ctx context.Context, id int64) (*catalogDomain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT product_id, name, created_at, updated_at FROM products WHERE product_id=?`, id)

	var p catalogDomain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, catalogDomain.ErrProductNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &p, nil
}

func (r *CatalogRepoSQLite) ListSkus(ctx context.Context, productID int64) ([]catalogDomain.Sku, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sku_id, product_id, stock, version, created_at, updated_at
		 FROM skus WHERE product_id=? ORDER BY sku_id`, productID)
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

func (r *CatalogRepoSQLite) SkuExists(ctx context.Context, skuID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM skus WHERE sku_id=?)`, skuID,
	).Scan(&exists)
	return exists, err
}

// ------------------ Inicialización ------------------

func InitCatalog(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS products (
		product_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS skus (
		sku_id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL,
		stock INTEGER NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	return err
}
