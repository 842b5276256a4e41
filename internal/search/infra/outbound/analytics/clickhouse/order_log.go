package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	searchDomain "github.com/davicafu/minicommerce/internal/search/domain"
)

// OrderAnalyticsRepo implementa AnalyticsRepository sobre ClickHouse.
// Cada lote indexado se apunta también en orders_log para análisis.
type OrderAnalyticsRepo struct {
	db *sql.DB
}

// NewOrderAnalyticsRepo es el constructor.
func NewOrderAnalyticsRepo(addr string, dbName string) (*OrderAnalyticsRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	if err := initSchema(conn); err != nil {
		return nil, err
	}

	return &OrderAnalyticsRepo{db: conn}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS orders_log (
		order_id String,
		sku_id Int64,
		quantity Int32,
		user_id Int64,
		status String,
		correlation_id String,
		created_at DateTime,
		event_time DateTime
	) ENGINE = MergeTree()
	ORDER BY (event_time, order_id)`)
	return err
}

var _ searchDomain.AnalyticsRepository = (*OrderAnalyticsRepo)(nil)

// LogBatch inserta un lote de pedidos en ClickHouse. Esta es la forma más eficiente.
func (r *OrderAnalyticsRepo) LogBatch(ctx context.Context, docs []searchDomain.OrderDocument) error {
	if len(docs) == 0 {
		return nil
	}

	// ClickHouse funciona mejor con inserciones en lotes.
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO orders_log (order_id, sku_id, quantity, user_id, status, correlation_id, created_at, event_time)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	eventTime := time.Now()
	for _, doc := range docs {
		if _, err := stmt.ExecContext(
			ctx,
			doc.OrderID,
			doc.SkuID,
			doc.Quantity,
			doc.UserID,
			doc.Status,
			doc.CorrelationID,
			doc.CreatedAt,
			eventTime,
		); err != nil {
			// Si un registro falla, hacemos rollback de todo el lote.
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for order %s: %w", doc.OrderID, err)
		}
	}

	return tx.Commit()
}

// DailyOrderTrend es el agregado diario de pedidos indexados.
type DailyOrderTrend struct {
	Day   time.Time
	Count uint64
}

func (r *OrderAnalyticsRepo) GetDailyTrend(ctx context.Context, start, end time.Time) ([]DailyOrderTrend, error) {
	query := `
		SELECT toStartOfDay(event_time) AS day, count() AS total
		FROM orders_log
		WHERE event_time BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day`

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []DailyOrderTrend
	for rows.Next() {
		var t DailyOrderTrend
		if err := rows.Scan(&t.Day, &t.Count); err != nil {
			return nil, err
		}
		trend = append(trend, t)
	}
	return trend, rows.Err()
}
