package domain

import (
	"context"
	"errors"
	"time"

	sharedDomain "github.com/davicafu/minicommerce/internal/shared/domain"
)

// ---------- Errores de dominio ----------
var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicateIdempotencyKey lo devuelve el repositorio cuando la
	// restricción UNIQUE sobre idempotency_key rechaza el insert.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrOrderInProgress indica que otro intento tiene el lock y todavía no
	// hay resultado resoluble; el cliente debe reintentar (HTTP 409).
	ErrOrderInProgress = errors.New("order is being processed")

	ErrInvalidOrder = errors.New("invalid order")

	// ErrSkuNotFound rechaza la creación antes de tocar el almacén (HTTP 404).
	ErrSkuNotFound = errors.New("sku not found")
)

// ---------- Interfaces (Ports) ----------

// OrderRepository define las operaciones persistentes para Order.
type OrderRepository interface {
	// CreateWithOutbox inserta el pedido y su evento de outbox en una única
	// transacción y devuelve el ID asignado por el almacén.
	// Debe devolver ErrDuplicateIdempotencyKey si la clave ya existe.
	CreateWithOutbox(ctx context.Context, o *Order, evt sharedDomain.OutboxEvent) (int64, error)

	// GetByIdempotencyKey debe devolver ErrOrderNotFound si no existe.
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)

	// GetByID debe devolver ErrOrderNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*Order, error)
}

// IdempotencyStore es el lock consultivo + caché de resultados sobre la
// clave de idempotencia. Nunca es autoritativo: expira por TTL y la
// restricción UNIQUE del almacén decide en caso de carrera.
type IdempotencyStore interface {
	// Acquire hace un set-if-absent con valor "processing" y TTL acotado.
	// Devuelve true si esta llamada obtuvo el lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Get devuelve el valor actual o "" si la clave no existe.
	Get(ctx context.Context, key string) (string, error)

	// SetResult sobrescribe la clave con el valor completado ("orderId:<id>").
	SetResult(ctx context.Context, key, value string, ttl time.Duration) error
}

// SkuChecker valida la precondición de existencia del SKU.
// Lo implementa el catálogo.
type SkuChecker interface {
	SkuExists(ctx context.Context, skuID int64) (bool, error)
}
