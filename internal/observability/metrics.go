package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics agrupa los contadores y gauges del pipeline de pedidos.
// Se construye una vez en el arranque y se pasa explícitamente a cada
// componente; no hay registro global implícito.
type Metrics struct {
	// Orders
	OrdersCreateAttempt   prometheus.Counter
	OrdersCreateSuccess   prometheus.Counter
	OrdersCreateRecovered prometheus.Counter // duplicado recuperado de la fila ganadora
	OrdersCreateFailed    prometheus.Counter

	// Cache de búsqueda
	CacheSearchHit  prometheus.Counter
	CacheSearchMiss prometheus.Counter

	// Publicación en Kafka (relayer)
	KafkaPublishSuccess prometheus.Counter
	KafkaPublishFailed  prometheus.Counter

	// Indexación (consumer)
	IndexedSuccess prometheus.Counter
	IndexedFailed  prometheus.Counter

	// Estado del outbox
	OutboxBatchSize     prometheus.Gauge
	OutboxBacklogNew    prometheus.Gauge
	OutboxBacklogSent   prometheus.Gauge
	OutboxBacklogFailed prometheus.Gauge
}

// NewMetrics registra todas las métricas en el Registerer recibido.
// Los tests pasan su propio prometheus.NewRegistry() para aislarse.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OrdersCreateAttempt: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcl_orders_create_attempt_total",
			Help: "Total number of order creation attempts",
		}),
		OrdersCreateSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcl_orders_create_success_total",
			Help: "Total number of orders created",
		}),
		OrdersCreateRecovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcl_orders_create_recovered_total",
			Help: "Duplicate submissions resolved to the already-persisted order",
		}),
		OrdersCreateFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcl_orders_create_failed_total",
			Help: "Order creation attempts that ended in error",
		}),
		CacheSearchHit: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcl_cache_search_hit_total",
			Help: "Search result cache hits",
		}),
		CacheSearchMiss: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcl_cache_search_miss_total",
			Help: "Search result cache misses",
		}),
		KafkaPublishSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcl_kafka_publish_success_total",
			Help: "Outbox events delivered to the broker",
		}),
		KafkaPublishFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcl_kafka_publish_failed_total",
			Help: "Outbox events that could not be delivered",
		}),
		IndexedSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcl_index_success_total",
			Help: "Search documents upserted into the index",
		}),
		IndexedFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcl_index_failed_total",
			Help: "Search documents dropped after a failed flush",
		}),
		OutboxBatchSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mcl_outbox_batch_size",
			Help: "Size of the last outbox batch read by the relayer",
		}),
		OutboxBacklogNew: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mcl_outbox_backlog_new",
			Help: "Outbox events currently in NEW status",
		}),
		OutboxBacklogSent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mcl_outbox_backlog_sent",
			Help: "Outbox events in SENT status",
		}),
		OutboxBacklogFailed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mcl_outbox_backlog_failed",
			Help: "Outbox events in FAILED status",
		}),
	}
}
