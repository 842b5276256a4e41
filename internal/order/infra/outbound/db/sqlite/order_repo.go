package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	orderDomain "github.com/davicafu/minicommerce/internal/order/domain"
	sharedDomain "github.com/davicafu/minicommerce/internal/shared/domain"
)

// OrderRepoSQLite es la variante para despliegue local sin Postgres.
type OrderRepoSQLite struct {
	db *sql.DB
}

func NewOrderRepoSQLite(db *sql.DB) *OrderRepoSQLite {
	return &OrderRepoSQLite{db: db}
}

var (
	_ orderDomain.OrderRepository   = (*OrderRepoSQLite)(nil)
	_ sharedDomain.OutboxRepository = (*OrderRepoSQLite)(nil)
)

// ------------------ Creación ------------------

func (r *OrderRepoSQLite) CreateWithOutbox(ctx context.Context, o *orderDomain.Order, evt sharedDomain.OutboxEvent) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, sku_id, quantity, status, idempotency_key, correlation_id, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		o.UserID, o.SkuID, o.Quantity, string(o.Status), o.IdempotencyKey, o.CorrelationID, o.CreatedAt,
	)
	if err != nil {
		// El driver no expone un tipo de error para UNIQUE, así que toca mirar el texto.
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			err = fmt.Errorf("%w: %s", orderDomain.ErrDuplicateIdempotencyKey, o.IdempotencyKey)
		}
		return 0, err
	}

	orderID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	evt.AggregateID = strconv.FormatInt(orderID, 10)
	if pl, ok := evt.Payload.(orderDomain.OrderCreatedPayload); ok {
		pl.OrderID = orderID
		evt.Payload = pl
	}

	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (outbox_id, aggregate_type, aggregate_id, event_type, payload, status, correlation_id, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		evt.ID.String(), evt.AggregateType, evt.AggregateID, evt.EventType, string(payloadBytes), string(evt.Status), evt.CorrelationID, evt.CreatedAt,
	); err != nil {
		return 0, fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return orderID, nil
}

// ------------------ Lectura ------------------

func (r *OrderRepoSQLite) GetByIdempotencyKey(ctx context.Context, key string) (*orderDomain.Order, error) {
	return r.getOne(ctx,
		`SELECT order_id, user_id, sku_id, quantity, status, idempotency_key, correlation_id, created_at
		 FROM orders WHERE idempotency_key=?`, key)
}

func (r *OrderRepoSQLite) GetByID(ctx context.Context, id int64) (*orderDomain.Order, error) {
	return r.getOne(ctx,
		`SELECT order_id, user_id, sku_id, quantity, status, idempotency_key, correlation_id, created_at
		 FROM orders WHERE order_id=?`, id)
}

func (r *OrderRepoSQLite) getOne(ctx context.Context, query string, arg interface{}) (*orderDomain.Order, error) {
	row := r.db.QueryRowContext(ctx, query, arg)

	var o orderDomain.Order
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &o.SkuID, &o.Quantity, &status, &o.IdempotencyKey, &o.CorrelationID, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, orderDomain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	o.Status = orderDomain.OrderStatus(status)

	return &o, nil
}

// ------------------ Outbox ------------------

func (r *OrderRepoSQLite) FetchPending(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT outbox_id, aggregate_type, aggregate_id, event_type, payload, status, correlation_id, created_at
		 FROM outbox_events WHERE status=? ORDER BY created_at ASC LIMIT ?`,
		string(sharedDomain.OutboxStatusNew), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sharedDomain.OutboxEvent
	for rows.Next() {
		var evt sharedDomain.OutboxEvent
		var idStr, status, payloadStr string

		if err := rows.Scan(&idStr, &evt.AggregateType, &evt.AggregateID, &evt.EventType, &payloadStr, &status, &evt.CorrelationID, &evt.CreatedAt); err != nil {
			return nil, err
		}

		parsedID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid outbox id %q: %w", idStr, err)
		}
		evt.ID = parsedID
		evt.Status = sharedDomain.OutboxStatus(status)
		evt.Payload = json.RawMessage(payloadStr)

		events = append(events, evt)
	}

	return events, rows.Err()
}

func (r *OrderRepoSQLite) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return r.markStatus(ctx, id,
		`UPDATE outbox_events SET status=?, sent_at=? WHERE outbox_id=?`,
		string(sharedDomain.OutboxStatusSent), sentAt, id.String())
}

func (r *OrderRepoSQLite) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.markStatus(ctx, id,
		`UPDATE outbox_events SET status=? WHERE outbox_id=?`,
		string(sharedDomain.OutboxStatusFailed), id.String())
}

func (r *OrderRepoSQLite) markStatus(ctx context.Context, id uuid.UUID, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	return nil
}

func (r *OrderRepoSQLite) CountByStatus(ctx context.Context, status sharedDomain.OutboxStatus) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox_events WHERE status=?`, string(status),
	).Scan(&n)
	return n, err
}

// ------------------ Inicialización ------------------

func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS orders (
		order_id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		sku_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		status TEXT NOT NULL,
		idempotency_key TEXT NOT NULL UNIQUE,
		correlation_id TEXT,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS outbox_events (
		outbox_id TEXT PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'NEW',
		correlation_id TEXT,
		created_at TIMESTAMP NOT NULL,
		sent_at TIMESTAMP
	)`)
	return err
}
