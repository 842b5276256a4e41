package integration

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/davicafu/minicommerce/internal/observability"
	orderApp "github.com/davicafu/minicommerce/internal/order/application"
	orderSqlite "github.com/davicafu/minicommerce/internal/order/infra/outbound/db/sqlite"
	"github.com/davicafu/minicommerce/internal/order/infra/outbound/idempotency"
	searchApp "github.com/davicafu/minicommerce/internal/search/application"
	searchDomain "github.com/davicafu/minicommerce/internal/search/domain"
	searchEvents "github.com/davicafu/minicommerce/internal/search/infra/inbound/events"
	sharedDomain "github.com/davicafu/minicommerce/internal/shared/domain"
	infraEvents "github.com/davicafu/minicommerce/internal/shared/infra/events"
	infraRelayer "github.com/davicafu/minicommerce/internal/shared/infra/relayer"
	"github.com/davicafu/minicommerce/tests/mocks"
)

// Recorre el camino completo: creación del pedido con outbox, relay al bus,
// consumo hacia el buffer de indexación, flush al índice y búsqueda.
func TestPipelineIntegration_OrderToSearch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := zap.NewNop()
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	repo := orderSqlite.NewOrderRepoSQLite(db)

	orderService := orderApp.NewOrderService(
		repo,
		idempotency.NewMemoryStore(),
		&mocks.StubSkuChecker{Existing: map[int64]bool{42: true}},
		metrics,
		2*time.Minute,
		log,
	)

	// Bus en memoria con el consumidor de indexación enganchado.
	searchRepo := mocks.NewInMemorySearchRepo()
	indexer := searchApp.NewIndexer(
		searchRepo, nil, metrics,
		16, time.Second, 10, 2, time.Millisecond, log,
	)

	bus := infraEvents.NewInMemoryEventBus("order.created")
	consumer := searchEvents.NewOrderCreatedConsumer(indexer, log)
	infraEvents.StartChannelConsumer(ctx, bus.Subscribe(16), consumer)

	worker := infraRelayer.NewOutboxWorker(
		repo, bus, metrics,
		time.Second, 10, 2, time.Millisecond, log,
	)

	// 1) Crear el pedido: fila + evento de outbox en la misma transacción.
	created, err := orderService.CreateOrder(ctx, orderApp.CreateOrderParams{
		SkuID:          42,
		Quantity:       2,
		IdempotencyKey: "pipe-key",
		CorrelationID:  "pipe-corr",
	})
	require.NoError(t, err)

	// 2) Relay: el evento pasa de NEW a SENT.
	worker.ProcessBatch(ctx)

	sent, err := repo.CountByStatus(ctx, sharedDomain.OutboxStatusSent)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sent)

	// 3) El consumidor encola el documento de forma asíncrona.
	assert.Eventually(t, func() bool {
		indexer.Flush(ctx)
		docs, err := searchRepo.Find(ctx, searchDomain.Filter{})
		return err == nil && len(docs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// 4) La búsqueda por usuario devuelve el pedido indexado.
	searchService := searchApp.NewSearchService(
		searchRepo, mocks.NewDummyCache(), metrics, 20*time.Second, log,
	)

	userID := int64(1)
	docs, err := searchService.Search(ctx, searchDomain.Filter{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "1", doc.OrderID)
	assert.Equal(t, int64(42), doc.SkuID)
	assert.Equal(t, 2, doc.Quantity)
	assert.Equal(t, "CREATED", doc.Status)
	assert.Equal(t, "pipe-corr", doc.CorrelationID)

	// 5) Repetir la creación no genera un segundo evento ni otro documento.
	again, err := orderService.CreateOrder(ctx, orderApp.CreateOrderParams{
		SkuID: 42, Quantity: 2, IdempotencyKey: "pipe-key",
	})
	require.NoError(t, err)
	assert.Equal(t, created.OrderID, again.OrderID)

	worker.ProcessBatch(ctx)
	indexer.Flush(ctx)

	docs, err = searchRepo.Find(ctx, searchDomain.Filter{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
