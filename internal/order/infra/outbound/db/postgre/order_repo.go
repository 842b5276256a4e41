package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	orderDomain "github.com/davicafu/minicommerce/internal/order/domain"
	sharedDomain "github.com/davicafu/minicommerce/internal/shared/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// uniqueViolation es el código SQLSTATE de Postgres para violación de UNIQUE.
const uniqueViolation = "23505"

type OrderRepoPostgres struct {
	db *sql.DB
}

func NewOrderRepoPostgres(db *sql.DB) *OrderRepoPostgres {
	return &OrderRepoPostgres{db: db}
}

var (
	_ orderDomain.OrderRepository   = (*OrderRepoPostgres)(nil)
	_ sharedDomain.OutboxRepository = (*OrderRepoPostgres)(nil)
)

// ------------------ Creación (pedido + outbox en una transacción) ------------------

// CreateWithOutbox inserta el pedido y su evento de outbox de forma atómica.
// El ID del pedido lo asigna la base de datos; con él se completan el
// aggregate_id y el payload del evento antes de insertarlo.
func (r *OrderRepoPostgres) CreateWithOutbox(ctx context.Context, o *orderDomain.Order, evt sharedDomain.OutboxEvent) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var orderID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, sku_id, quantity, status, idempotency_key, correlation_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING order_id`,
		o.UserID, o.SkuID, o.Quantity, string(o.Status), o.IdempotencyKey, nullable(o.CorrelationID), o.CreatedAt,
	).Scan(&orderID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = fmt.Errorf("%w: %s", orderDomain.ErrDuplicateIdempotencyKey, o.IdempotencyKey)
		}
		return 0, err
	}

	evt.AggregateID = strconv.FormatInt(orderID, 10)
	if pl, ok := evt.Payload.(orderDomain.OrderCreatedPayload); ok {
		pl.OrderID = orderID
		evt.Payload = pl
	}

	if err = insertOutboxTx(ctx, tx, evt); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return orderID, nil
}

func insertOutboxTx(ctx context.Context, tx *sql.Tx, evt sharedDomain.OutboxEvent) error {
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (outbox_id, aggregate_type, aggregate_id, event_type, payload, status, correlation_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		evt.ID, evt.AggregateType, evt.AggregateID, evt.EventType, payloadBytes, string(evt.Status), nullable(evt.CorrelationID), evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// ------------------ Lectura ------------------

func (r *OrderRepoPostgres) GetByIdempotencyKey(ctx context.Context, key string) (*orderDomain.Order, error) {
	return r.getOne(ctx,
		`SELECT order_id, user_id, sku_id, quantity, status, idempotency_key, correlation_id, created_at
		 FROM orders WHERE idempotency_key=$1`, key)
}

func (r *OrderRepoPostgres) GetByID(ctx context.Context, id int64) (*orderDomain.Order, error) {
	return r.getOne(ctx,
		`SELECT order_id, user_id, sku_id, quantity, status, idempotency_key, correlation_id, created_at
		 FROM orders WHERE order_id=$1`, id)
}

func (r *OrderRepoPostgres) getOne(ctx context.Context, query string, arg interface{}) (*orderDomain.Order, error) {
	row := r.db.QueryRowContext(ctx, query, arg)

	var o orderDomain.Order
	var status string
	var correlationID sql.NullString
	if err := row.Scan(&o.ID, &o.UserID, &o.SkuID, &o.Quantity, &status, &o.IdempotencyKey, &correlationID, &o.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, orderDomain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	o.Status = orderDomain.OrderStatus(status)
	o.CorrelationID = correlationID.String

	return &o, nil
}

// ------------------ Outbox (contrato del relayer) ------------------

// FetchPending devuelve los eventos NEW, del más antiguo al más reciente.
func (r *OrderRepoPostgres) FetchPending(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT outbox_id, aggregate_type, aggregate_id, event_type, payload, status, correlation_id, created_at
		 FROM outbox_events WHERE status=$1 ORDER BY created_at ASC LIMIT $2`,
		string(sharedDomain.OutboxStatusNew), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sharedDomain.OutboxEvent
	for rows.Next() {
		var evt sharedDomain.OutboxEvent
		var status string
		var correlationID sql.NullString
		var payloadBytes []byte

		if err := rows.Scan(&evt.ID, &evt.AggregateType, &evt.AggregateID, &evt.EventType, &payloadBytes, &status, &correlationID, &evt.CreatedAt); err != nil {
			return nil, err
		}
		evt.Status = sharedDomain.OutboxStatus(status)
		evt.CorrelationID = correlationID.String
		evt.Payload = json.RawMessage(payloadBytes)

		events = append(events, evt)
	}

	return events, rows.Err()
}

func (r *OrderRepoPostgres) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return r.markStatus(ctx, id,
		`UPDATE outbox_events SET status=$1, sent_at=$2 WHERE outbox_id=$3`,
		string(sharedDomain.OutboxStatusSent), sentAt, id)
}

func (r *OrderRepoPostgres) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.markStatus(ctx, id,
		`UPDATE outbox_events SET status=$1 WHERE outbox_id=$2`,
		string(sharedDomain.OutboxStatusFailed), id)
}

func (r *OrderRepoPostgres) markStatus(ctx context.Context, id uuid.UUID, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	return nil
}

func (r *OrderRepoPostgres) CountByStatus(ctx context.Context, status sharedDomain.OutboxStatus) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox_events WHERE status=$1`, string(status),
	).Scan(&n)
	return n, err
}

// ------------------ Inicialización ------------------

func InitPostgres(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS orders (
		order_id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		sku_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		status VARCHAR(30) NOT NULL,
		idempotency_key VARCHAR(80) NOT NULL UNIQUE,
		correlation_id VARCHAR(80),
		created_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS outbox_events (
		outbox_id UUID PRIMARY KEY,
		aggregate_type VARCHAR(50) NOT NULL,
		aggregate_id VARCHAR(80) NOT NULL,
		event_type VARCHAR(80) NOT NULL,
		payload JSONB NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'NEW',
		correlation_id VARCHAR(80),
		created_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ
	)`)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
