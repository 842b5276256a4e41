package domain

import (
	"fmt"
	"strconv"
	"time"

	sharedBus "github.com/davicafu/minicommerce/internal/shared/infra/platform/bus"
)

// OrderStatus es el estado del pedido. Un pedido nace CREATED y este core
// no lo muta después.
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "CREATED"
)

// TopicOrderCreated es el topic del broker para eventos de creación de pedido.
const TopicOrderCreated = "order.created"

// EventTypeOrderCreated es el event_type guardado en el outbox.
const EventTypeOrderCreated = "ORDER_CREATED"

// Order representa un pedido. El ID lo asigna el almacén; la clave de
// idempotencia es única a nivel de base de datos y esa restricción es la
// única fuente de verdad frente a envíos duplicados.
type Order struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"user_id"`
	SkuID          int64       `json:"sku_id"`
	Quantity       int         `json:"quantity"`
	Status         OrderStatus `json:"status"`
	IdempotencyKey string      `json:"idempotency_key"`
	CorrelationID  string      `json:"correlation_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// OrderCreatedPayload es el cuerpo del mensaje publicado en order.created.
type OrderCreatedPayload struct {
	OrderID       int64  `json:"orderId"`
	SkuID         int64  `json:"skuId"`
	Quantity      int    `json:"quantity"`
	UserID        int64  `json:"userId"`
	CorrelationID string `json:"correlationId,omitempty"`
	EventType     string `json:"eventType"`
}

// PartitionKey usa la identidad del pedido: garantiza orden por agregado,
// no orden global.
func (p OrderCreatedPayload) PartitionKey() string {
	return strconv.FormatInt(p.OrderID, 10)
}

var _ sharedBus.Keyer = OrderCreatedPayload{}

// CreatedOrder es el resultado que ve el cliente tras crear (o repetir) un pedido.
type CreatedOrder struct {
	OrderID       int64  `json:"orderId"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// ---------- Helpers comunes (cache keys) ----------

// IdemKey forma la clave Redis para una clave de idempotencia.
// ej. idempotencyKey = "abc-123" -> "idem:orders:abc-123"
func IdemKey(idempotencyKey string) string {
	return fmt.Sprintf("idem:orders:%s", idempotencyKey)
}

// IdemValueProcessing es el valor del lock mientras el primer intento trabaja.
const IdemValueProcessing = "processing"

// IdemValueCompleted codifica el resultado final para los reintentos.
func IdemValueCompleted(orderID int64) string {
	return fmt.Sprintf("orderId:%d", orderID)
}
