package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus es el ciclo de vida de una fila de outbox. Las transiciones
// son monótonas: NEW -> SENT o NEW -> FAILED, nunca hacia atrás.
type OutboxStatus string

const (
	OutboxStatusNew    OutboxStatus = "NEW"
	OutboxStatusSent   OutboxStatus = "SENT"
	OutboxStatusFailed OutboxStatus = "FAILED"
)

// OutboxEvent representa un evento pendiente de publicar en el broker.
// Se inserta en la misma transacción que el cambio de negocio que lo origina.
type OutboxEvent struct {
	ID            uuid.UUID    `json:"id"`
	AggregateType string       `json:"aggregate_type"` // ej. "ORDER"
	AggregateID   string       `json:"aggregate_id"`
	EventType     string       `json:"event_type"` // ej. "ORDER_CREATED"
	Payload       interface{}  `json:"payload"`    // JSON serializable
	Status        OutboxStatus `json:"status"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	SentAt        *time.Time   `json:"sent_at,omitempty"`
}

// OutboxRepository define el contrato para acceder a la tabla outbox.
// Es una interfaz más pequeña que la de un repositorio de dominio completo,
// conteniendo solo los métodos que el relayer necesita.
type OutboxRepository interface {
	// FetchPending devuelve hasta limit eventos NEW, los más antiguos primero.
	FetchPending(ctx context.Context, limit int) ([]OutboxEvent, error)

	// MarkSent registra la publicación confirmada y su instante.
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error

	// MarkFailed marca el evento como terminal tras agotar reintentos.
	MarkFailed(ctx context.Context, id uuid.UUID) error

	// CountByStatus mide el backlog por estado, para observabilidad.
	CountByStatus(ctx context.Context, status OutboxStatus) (int64, error)
}
