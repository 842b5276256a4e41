package relayer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/minicommerce/internal/observability"
	sharedDomain "github.com/davicafu/minicommerce/internal/shared/domain"
	sharedBus "github.com/davicafu/minicommerce/internal/shared/infra/platform/bus"
	"github.com/davicafu/minicommerce/pkg/utils"
)

// Worker publica los eventos pendientes de la tabla outbox.
//
// Cada ciclo es un pipeline de tres fases explícitas: leer un lote NEW,
// publicar cada evento (con la identidad del agregado como clave de
// partición) y registrar el resultado SENT/FAILED. La publicación es
// síncrona y la marca se escribe después, nunca dentro de una transacción
// que pueda estar ya comprometiéndose.
//
// Un crash antes de marcar deja el lote en NEW y se reintenta al ciclo
// siguiente: la entrega al broker es al menos una vez y el consumidor debe
// tolerar duplicados. No hay coordinación entre instancias; ejecutar más de
// un relayer sobre la misma tabla puede duplicar publicaciones.
type Worker struct {
	repo          sharedDomain.OutboxRepository
	publisher     sharedBus.EventPublisher
	metrics       *observability.Metrics
	interval      time.Duration
	batchSize     int
	retryAttempts int
	retryDelay    time.Duration
	log           *zap.Logger
}

func NewOutboxWorker(
	repo sharedDomain.OutboxRepository,
	publisher sharedBus.EventPublisher,
	metrics *observability.Metrics,
	interval time.Duration,
	batchSize int,
	retryAttempts int,
	retryDelay time.Duration,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repo:          repo,
		publisher:     publisher,
		metrics:       metrics,
		interval:      interval,
		batchSize:     batchSize,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
		log:           log,
	}
}

// Start inicia el bucle de polling del worker.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.log.Info("🚀 Outbox relayer iniciado", zap.Duration("interval", w.interval))

		for {
			select {
			case <-ctx.Done():
				w.log.Info("🛑 Outbox relayer detenido.")
				return
			case <-ticker.C:
				w.ProcessBatch(ctx)
			}
		}
	}()
}

// ProcessBatch ejecuta un ciclo completo: fetch, publish, mark.
func (w *Worker) ProcessBatch(ctx context.Context) {
	events, err := w.repo.FetchPending(ctx, w.batchSize)
	if err != nil {
		w.log.Warn("⚠️ Error al obtener eventos pendientes", zap.Error(err))
		return
	}

	w.metrics.OutboxBatchSize.Set(float64(len(events)))
	if len(events) == 0 {
		return
	}
	w.log.Info(fmt.Sprintf("📬 %d eventos encontrados para procesar", len(events)))

	for _, evt := range events {
		w.publishAndMark(ctx, evt)
	}
}

func (w *Worker) publishAndMark(ctx context.Context, evt sharedDomain.OutboxEvent) {
	msg := sharedBus.Message{
		Key:     evt.AggregateID,
		Payload: evt.Payload,
	}

	// Publicación con reintento acotado antes de dar el evento por perdido.
	err := utils.Retry(ctx, w.retryAttempts, w.retryDelay, func() error {
		return w.publisher.Publish(ctx, msg)
	})
	if err != nil {
		w.metrics.KafkaPublishFailed.Inc()
		w.log.Error("⚠️ No se pudo publicar evento, lo marco FAILED",
			zap.String("event_id", evt.ID.String()),
			zap.String("aggregate_id", evt.AggregateID),
			zap.Error(err),
		)
		// FAILED es terminal; la fila queda en la tabla para inspección.
		if markErr := w.repo.MarkFailed(ctx, evt.ID); markErr != nil {
			w.log.Warn("no se pudo marcar evento como FAILED",
				zap.String("event_id", evt.ID.String()),
				zap.Error(markErr),
			)
		}
		return
	}

	w.metrics.KafkaPublishSuccess.Inc()
	if err := w.repo.MarkSent(ctx, evt.ID, time.Now().UTC()); err != nil {
		// El evento ya está en el broker: si la marca falla se reenviará en el
		// próximo ciclo, de ahí la exigencia de consumo idempotente.
		w.log.Warn("⚠️ No se pudo marcar evento como SENT",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return
	}

	w.log.Info("✅ Evento publicado y marcado",
		zap.String("event_id", evt.ID.String()),
		zap.String("aggregate_id", evt.AggregateID),
	)
}
