package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	orderDomain "github.com/davicafu/minicommerce/internal/order/domain"
	searchDomain "github.com/davicafu/minicommerce/internal/search/domain"
)

// capturingBuffer guarda los documentos ofrecidos.
type capturingBuffer struct {
	docs []searchDomain.OrderDocument
	mu   sync.Mutex
}

func (b *capturingBuffer) Offer(doc searchDomain.OrderDocument) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs = append(b.docs, doc)
}

func TestOrderCreatedConsumer_BuildsDocument(t *testing.T) {
	buffer := &capturingBuffer{}
	consumer := NewOrderCreatedConsumer(buffer, zap.NewNop())

	payload, err := json.Marshal(orderDomain.OrderCreatedPayload{
		OrderID:       15,
		SkuID:         42,
		Quantity:      3,
		UserID:        1,
		CorrelationID: "corr-15",
		EventType:     orderDomain.EventTypeOrderCreated,
	})
	require.NoError(t, err)

	consumer.HandleMessage(context.Background(), "15", payload)

	require.Len(t, buffer.docs, 1)
	doc := buffer.docs[0]
	assert.Equal(t, "15", doc.OrderID)
	assert.Equal(t, int64(42), doc.SkuID)
	assert.Equal(t, 3, doc.Quantity)
	assert.Equal(t, int64(1), doc.UserID)
	assert.Equal(t, "CREATED", doc.Status)
	assert.Equal(t, "corr-15", doc.CorrelationID)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestOrderCreatedConsumer_InvalidPayloadIgnored(t *testing.T) {
	buffer := &capturingBuffer{}
	consumer := NewOrderCreatedConsumer(buffer, zap.NewNop())

	consumer.HandleMessage(context.Background(), "x", []byte("not-json"))

	assert.Empty(t, buffer.docs)
}
