package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	orderDomain "github.com/davicafu/minicommerce/internal/order/domain"
	searchDomain "github.com/davicafu/minicommerce/internal/search/domain"
)

// IndexBuffer es lo que el consumidor necesita del Indexer.
type IndexBuffer interface {
	Offer(doc searchDomain.OrderDocument)
}

// OrderCreatedConsumer transforma los mensajes de order.created en
// documentos de búsqueda y los encola en el buffer.
//
// La entrega es al menos una vez: el mismo mensaje puede llegar dos veces,
// pero ambas producen el mismo documento y el upsert por identidad lo absorbe.
type OrderCreatedConsumer struct {
	buffer IndexBuffer
	log    *zap.Logger
}

func NewOrderCreatedConsumer(buffer IndexBuffer, log *zap.Logger) *OrderCreatedConsumer {
	return &OrderCreatedConsumer{
		buffer: buffer,
		log:    log,
	}
}

func (c *OrderCreatedConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var evt orderDomain.OrderCreatedPayload
	if err := json.Unmarshal(payload, &evt); err != nil {
		c.log.Warn("Failed to unmarshal order.created payload",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}

	doc := searchDomain.OrderDocument{
		OrderID:       evt.PartitionKey(),
		SkuID:         evt.SkuID,
		Quantity:      evt.Quantity,
		UserID:        evt.UserID,
		Status:        string(orderDomain.OrderStatusCreated),
		CorrelationID: evt.CorrelationID,
		CreatedAt:     time.Now().UTC(),
	}

	c.buffer.Offer(doc)

	c.log.Debug("[Kafka -> index] documento encolado",
		zap.String("order_id", doc.OrderID),
		zap.Int64("sku_id", doc.SkuID),
		zap.String("correlation_id", doc.CorrelationID),
	)
}
