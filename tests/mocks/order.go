package mocks

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	orderDomain "github.com/davicafu/minicommerce/internal/order/domain"
	sharedDomain "github.com/davicafu/minicommerce/internal/shared/domain"
)

// InMemoryOrderRepo simula OrderRepository con outbox incluido. Reproduce la
// restricción UNIQUE sobre idempotency_key y la asignación secuencial de IDs.
type InMemoryOrderRepo struct {
	Orders map[string]*orderDomain.Order // por clave de idempotencia
	Outbox []sharedDomain.OutboxEvent
	nextID int64
	mu     sync.Mutex
}

func NewInMemoryOrderRepo() *InMemoryOrderRepo {
	return &InMemoryOrderRepo{
		Orders: make(map[string]*orderDomain.Order),
	}
}

var (
	_ orderDomain.OrderRepository   = (*InMemoryOrderRepo)(nil)
	_ sharedDomain.OutboxRepository = (*InMemoryOrderRepo)(nil)
)

// CreateWithOutbox con la misma semántica que los adapters reales: pedido y
// evento quedan juntos o no queda ninguno.
func (r *InMemoryOrderRepo) CreateWithOutbox(ctx context.Context, o *orderDomain.Order, evt sharedDomain.OutboxEvent) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Orders[o.IdempotencyKey]; ok {
		return 0, orderDomain.ErrDuplicateIdempotencyKey
	}

	r.nextID++
	stored := *o
	stored.ID = r.nextID
	r.Orders[o.IdempotencyKey] = &stored

	evt.AggregateID = strconv.FormatInt(stored.ID, 10)
	if pl, ok := evt.Payload.(orderDomain.OrderCreatedPayload); ok {
		pl.OrderID = stored.ID
		evt.Payload = pl
	}
	r.Outbox = append(r.Outbox, evt)

	return stored.ID, nil
}

func (r *InMemoryOrderRepo) GetByIdempotencyKey(ctx context.Context, key string) (*orderDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.Orders[key]
	if !ok {
		return nil, orderDomain.ErrOrderNotFound
	}
	copy := *o
	return &copy, nil
}

func (r *InMemoryOrderRepo) GetByID(ctx context.Context, id int64) (*orderDomain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.Orders {
		if o.ID == id {
			copy := *o
			return &copy, nil
		}
	}
	return nil, orderDomain.ErrOrderNotFound
}

// ------------------- Outbox -------------------

func (r *InMemoryOrderRepo) FetchPending(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []sharedDomain.OutboxEvent
	for _, evt := range r.Outbox {
		if evt.Status != sharedDomain.OutboxStatusNew {
			continue
		}
		pending = append(pending, evt)
		if len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (r *InMemoryOrderRepo) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	return r.setStatus(id, sharedDomain.OutboxStatusSent, &sentAt)
}

func (r *InMemoryOrderRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(id, sharedDomain.OutboxStatusFailed, nil)
}

func (r *InMemoryOrderRepo) setStatus(id uuid.UUID, status sharedDomain.OutboxStatus, sentAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.Outbox {
		if r.Outbox[i].ID == id {
			r.Outbox[i].Status = status
			r.Outbox[i].SentAt = sentAt
			return nil
		}
	}
	return orderDomain.ErrOrderNotFound
}

func (r *InMemoryOrderRepo) CountByStatus(ctx context.Context, status sharedDomain.OutboxStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, evt := range r.Outbox {
		if evt.Status == status {
			n++
		}
	}
	return n, nil
}

// ------------------- SkuChecker -------------------

// StubSkuChecker responde a SkuExists con un conjunto fijo de SKUs.
type StubSkuChecker struct {
	Existing map[int64]bool
	Err      error
}

func (s *StubSkuChecker) SkuExists(ctx context.Context, skuID int64) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	return s.Existing[skuID], nil
}

var _ orderDomain.SkuChecker = (*StubSkuChecker)(nil)
