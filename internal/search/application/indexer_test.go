package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/minicommerce/internal/observability"
	"github.com/davicafu/minicommerce/internal/search/domain"
	"github.com/davicafu/minicommerce/tests/mocks"
)

func newTestIndexer(repo domain.SearchRepository, analytics domain.AnalyticsRepository, flushBatch int) *Indexer {
	return NewIndexer(
		repo, analytics,
		testMetrics(),
		16, time.Second, flushBatch, 2, time.Millisecond, zap.NewNop(),
	)
}

func doc(id string) domain.OrderDocument {
	return domain.OrderDocument{
		OrderID:   id,
		SkuID:     42,
		Quantity:  1,
		UserID:    1,
		Status:    "CREATED",
		CreatedAt: time.Now().UTC(),
	}
}

func TestIndexer_FlushUpsertsBatch(t *testing.T) {
	repo := mocks.NewInMemorySearchRepo()
	ix := newTestIndexer(repo, nil, 10)

	ix.Offer(doc("1"))
	ix.Offer(doc("2"))
	ix.Offer(doc("3"))
	ix.Flush(context.Background())

	assert.Len(t, repo.Docs, 3)
	assert.Equal(t, 1, repo.BulkCalls())
}

func TestIndexer_FlushRespectsBatchLimit(t *testing.T) {
	repo := mocks.NewInMemorySearchRepo()
	ix := newTestIndexer(repo, nil, 2)

	for i := 0; i < 5; i++ {
		ix.Offer(doc(fmt.Sprintf("%d", i)))
	}

	// Cada flush drena como mucho flushBatch documentos.
	ix.Flush(context.Background())
	assert.Len(t, repo.Docs, 2)

	ix.Flush(context.Background())
	ix.Flush(context.Background())
	assert.Len(t, repo.Docs, 5)
}

func TestIndexer_RedeliveryLeavesOneDocument(t *testing.T) {
	repo := mocks.NewInMemorySearchRepo()
	ix := newTestIndexer(repo, nil, 10)

	// El mismo pedido entregado dos veces (at-least-once) se upserta, no duplica.
	ix.Offer(doc("7"))
	ix.Offer(doc("7"))
	ix.Flush(context.Background())

	assert.Len(t, repo.Docs, 1)
}

func TestIndexer_FailedFlushDropsBatch(t *testing.T) {
	repo := mocks.NewInMemorySearchRepo()
	repo.Err = errors.New("index down")
	repo.FailTimes = 5 // más que los reintentos configurados
	ix := newTestIndexer(repo, nil, 10)

	ix.Offer(doc("1"))
	ix.Flush(context.Background())

	// El lote se descarta tras agotar reintentos; el siguiente flush no lo repite.
	assert.Empty(t, repo.Docs)
	ix.Flush(context.Background())
	assert.Equal(t, 2, repo.BulkCalls()) // solo los reintentos del primer lote
}

func TestIndexer_RetryThenSuccess(t *testing.T) {
	repo := mocks.NewInMemorySearchRepo()
	repo.Err = errors.New("flaky")
	repo.FailTimes = 1
	ix := newTestIndexer(repo, nil, 10)

	ix.Offer(doc("1"))
	ix.Flush(context.Background())

	assert.Len(t, repo.Docs, 1)
	assert.Equal(t, 2, repo.BulkCalls())
}

func TestIndexer_FullBufferDropsDocument(t *testing.T) {
	repo := mocks.NewInMemorySearchRepo()
	ix := NewIndexer(
		repo, nil, testMetrics(),
		1, time.Second, 10, 1, time.Millisecond, zap.NewNop(),
	)

	ix.Offer(doc("1"))
	ix.Offer(doc("2")) // buffer lleno, descartado
	ix.Flush(context.Background())

	require.Len(t, repo.Docs, 1)
	assert.Contains(t, repo.Docs, "1")
}

func TestIndexer_AnalyticsBestEffort(t *testing.T) {
	repo := mocks.NewInMemorySearchRepo()
	analytics := &mocks.CapturingAnalytics{}
	ix := newTestIndexer(repo, analytics, 10)

	ix.Offer(doc("1"))
	ix.Offer(doc("2"))
	ix.Flush(context.Background())

	require.Len(t, analytics.Batches, 1)
	assert.Len(t, analytics.Batches[0], 2)

	// Un fallo analítico no impide indexar.
	analytics.Err = errors.New("clickhouse down")
	ix.Offer(doc("3"))
	ix.Flush(context.Background())
	assert.Len(t, repo.Docs, 3)
}

func testMetrics() *observability.Metrics {
	return observability.NewMetrics(prometheus.NewRegistry())
}
