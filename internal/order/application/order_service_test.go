package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/minicommerce/internal/observability"
	"github.com/davicafu/minicommerce/internal/order/domain"
	"github.com/davicafu/minicommerce/internal/order/infra/outbound/idempotency"
	sharedDomain "github.com/davicafu/minicommerce/internal/shared/domain"
	"github.com/davicafu/minicommerce/tests/mocks"
)

func newTestService(repo domain.OrderRepository) *OrderService {
	return NewOrderService(
		repo,
		idempotency.NewMemoryStore(),
		&mocks.StubSkuChecker{Existing: map[int64]bool{42: true}},
		observability.NewMetrics(prometheus.NewRegistry()),
		2*time.Minute,
		zap.NewNop(),
	)
}

func TestCreateOrder_Success(t *testing.T) {
	repo := mocks.NewInMemoryOrderRepo()
	service := newTestService(repo)

	created, err := service.CreateOrder(context.Background(), CreateOrderParams{
		SkuID:          42,
		Quantity:       2,
		IdempotencyKey: "key-1",
		CorrelationID:  "corr-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.OrderID)
	assert.Equal(t, string(domain.OrderStatusCreated), created.Status)
	assert.Equal(t, "corr-1", created.CorrelationID)

	// El pedido y su evento de outbox quedan juntos.
	require.Len(t, repo.Outbox, 1)
	evt := repo.Outbox[0]
	assert.Equal(t, domain.EventTypeOrderCreated, evt.EventType)
	assert.Equal(t, "1", evt.AggregateID)
	assert.Equal(t, sharedDomain.OutboxStatusNew, evt.Status)

	payload, ok := evt.Payload.(domain.OrderCreatedPayload)
	require.True(t, ok)
	assert.Equal(t, int64(1), payload.OrderID)
	assert.Equal(t, int64(42), payload.SkuID)
	assert.Equal(t, "1", payload.PartitionKey())
}

func TestCreateOrder_RepeatedKeyReturnsSameOrder(t *testing.T) {
	repo := mocks.NewInMemoryOrderRepo()
	service := newTestService(repo)

	params := CreateOrderParams{SkuID: 42, Quantity: 1, IdempotencyKey: "key-rep"}

	first, err := service.CreateOrder(context.Background(), params)
	require.NoError(t, err)

	second, err := service.CreateOrder(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	// La repetición no inserta ni pedido ni evento nuevos.
	assert.Len(t, repo.Orders, 1)
	assert.Len(t, repo.Outbox, 1)
}

func TestCreateOrder_ConcurrentSameKey(t *testing.T) {
	repo := mocks.NewInMemoryOrderRepo()
	service := newTestService(repo)

	const n = 20
	params := CreateOrderParams{SkuID: 42, Quantity: 1, IdempotencyKey: "key-race"}

	var wg sync.WaitGroup
	results := make([]*domain.CreatedOrder, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.CreateOrder(context.Background(), params)
		}(i)
	}
	wg.Wait()

	// Exactamente una fila y un evento, gana quien gana.
	assert.Len(t, repo.Orders, 1)
	assert.Len(t, repo.Outbox, 1)

	winner := repo.Orders["key-race"].ID
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			// Mientras el ganador trabaja, los perdedores pueden ver conflicto.
			assert.ErrorIs(t, errs[i], domain.ErrOrderInProgress)
			continue
		}
		assert.Equal(t, winner, results[i].OrderID)
	}
}

func TestCreateOrder_SkuNotFound(t *testing.T) {
	service := newTestService(mocks.NewInMemoryOrderRepo())

	_, err := service.CreateOrder(context.Background(), CreateOrderParams{
		SkuID:          999,
		Quantity:       1,
		IdempotencyKey: "key-sku",
	})
	assert.ErrorIs(t, err, domain.ErrSkuNotFound)
}

func TestCreateOrder_Validation(t *testing.T) {
	service := newTestService(mocks.NewInMemoryOrderRepo())

	_, err := service.CreateOrder(context.Background(), CreateOrderParams{
		SkuID: 42, Quantity: 0, IdempotencyKey: "key-q",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	_, err = service.CreateOrder(context.Background(), CreateOrderParams{
		SkuID: 42, Quantity: 1, IdempotencyKey: "",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestCreateOrder_ConflictWhileProcessing(t *testing.T) {
	repo := mocks.NewInMemoryOrderRepo()
	idem := idempotency.NewMemoryStore()
	service := NewOrderService(
		repo, idem,
		&mocks.StubSkuChecker{Existing: map[int64]bool{42: true}},
		observability.NewMetrics(prometheus.NewRegistry()),
		2*time.Minute, zap.NewNop(),
	)

	// Otro intento tiene el lock y todavía no hay fila en el almacén.
	acquired, err := idem.Acquire(context.Background(), domain.IdemKey("key-busy"), time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = service.CreateOrder(context.Background(), CreateOrderParams{
		SkuID: 42, Quantity: 1, IdempotencyKey: "key-busy",
	})
	assert.ErrorIs(t, err, domain.ErrOrderInProgress)
	assert.Empty(t, repo.Orders)
}

func TestCreateOrder_CacheFastPath(t *testing.T) {
	repo := mocks.NewInMemoryOrderRepo()
	idem := idempotency.NewMemoryStore()
	service := NewOrderService(
		repo, idem,
		&mocks.StubSkuChecker{Existing: map[int64]bool{42: true}},
		observability.NewMetrics(prometheus.NewRegistry()),
		2*time.Minute, zap.NewNop(),
	)

	// La caché ya codifica el resultado completado.
	key := domain.IdemKey("key-cached")
	_, err := idem.Acquire(context.Background(), key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, idem.SetResult(context.Background(), key, domain.IdemValueCompleted(7), time.Minute))

	created, err := service.CreateOrder(context.Background(), CreateOrderParams{
		SkuID: 42, Quantity: 1, IdempotencyKey: "key-cached",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), created.OrderID)
	// No se tocó el almacén.
	assert.Empty(t, repo.Orders)
}

func TestCreateOrder_RecoversExistingRow(t *testing.T) {
	repo := mocks.NewInMemoryOrderRepo()
	service := newTestService(repo)

	// Un intento anterior completó el insert pero murió antes de cachear.
	_, err := repo.CreateWithOutbox(context.Background(), &domain.Order{
		UserID: 1, SkuID: 42, Quantity: 1,
		Status:         domain.OrderStatusCreated,
		IdempotencyKey: "key-ghost",
		CreatedAt:      time.Now().UTC(),
	}, sharedDomain.OutboxEvent{})
	require.NoError(t, err)

	created, err := service.CreateOrder(context.Background(), CreateOrderParams{
		SkuID: 42, Quantity: 1, IdempotencyKey: "key-ghost",
	})
	require.NoError(t, err)
	assert.Equal(t, repo.Orders["key-ghost"].ID, created.OrderID)
	// Recuperar no duplica el evento de outbox.
	assert.Len(t, repo.Outbox, 1)
}

// blindRepo oculta la fila existente en la primera lectura, forzando la
// carrera que resuelve la restricción UNIQUE.
type blindRepo struct {
	*mocks.InMemoryOrderRepo
	reads int
	mu    sync.Mutex
}

func (r *blindRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	r.mu.Lock()
	r.reads++
	first := r.reads == 1
	r.mu.Unlock()

	if first {
		return nil, domain.ErrOrderNotFound
	}
	return r.InMemoryOrderRepo.GetByIdempotencyKey(ctx, key)
}

func TestCreateOrder_RecoversWinnerOnUniqueViolation(t *testing.T) {
	inner := mocks.NewInMemoryOrderRepo()

	// El ganador ya insertó su fila.
	winnerID, err := inner.CreateWithOutbox(context.Background(), &domain.Order{
		UserID: 1, SkuID: 42, Quantity: 1,
		Status:         domain.OrderStatusCreated,
		IdempotencyKey: "key-unique",
		CreatedAt:      time.Now().UTC(),
	}, sharedDomain.OutboxEvent{})
	require.NoError(t, err)

	repo := &blindRepo{InMemoryOrderRepo: inner}
	service := newTestService(repo)

	// El chequeo defensivo no ve la fila, el insert choca con UNIQUE y la
	// relectura devuelve al ganador.
	created, err := service.CreateOrder(context.Background(), CreateOrderParams{
		SkuID: 42, Quantity: 1, IdempotencyKey: "key-unique",
	})
	require.NoError(t, err)
	assert.Equal(t, winnerID, created.OrderID)
	assert.Len(t, inner.Outbox, 1)
}
