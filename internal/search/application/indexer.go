package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/minicommerce/internal/observability"
	"github.com/davicafu/minicommerce/internal/search/domain"
	"github.com/davicafu/minicommerce/pkg/utils"
)

// Indexer acumula documentos recibidos del broker en un buffer FIFO y los
// vuelca periódicamente al índice como upsert masivo.
//
// El buffer es un canal: preserva el orden de llegada por partición y
// desacopla al consumidor del índice. El orden entre claves distintas y
// entre lotes de flush no está garantizado.
type Indexer struct {
	repo          domain.SearchRepository
	analytics     domain.AnalyticsRepository // opcional, puede ser nil
	metrics       *observability.Metrics
	buffer        chan domain.OrderDocument
	flushInterval time.Duration
	flushBatch    int
	retryAttempts int
	retryDelay    time.Duration
	log           *zap.Logger
}

func NewIndexer(
	repo domain.SearchRepository,
	analytics domain.AnalyticsRepository,
	metrics *observability.Metrics,
	bufferSize int,
	flushInterval time.Duration,
	flushBatch int,
	retryAttempts int,
	retryDelay time.Duration,
	log *zap.Logger,
) *Indexer {
	return &Indexer{
		repo:          repo,
		analytics:     analytics,
		metrics:       metrics,
		buffer:        make(chan domain.OrderDocument, bufferSize),
		flushInterval: flushInterval,
		flushBatch:    flushBatch,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
		log:           log,
	}
}

// Offer encola un documento sin bloquear. Si el buffer está lleno el
// documento se descarta y se cuenta como fallo de indexación.
func (ix *Indexer) Offer(doc domain.OrderDocument) {
	select {
	case ix.buffer <- doc:
	default:
		ix.metrics.IndexedFailed.Inc()
		ix.log.Warn("⚠️ Buffer de indexación lleno, documento descartado",
			zap.String("order_id", doc.OrderID),
		)
	}
}

// Start inicia el bucle de flush periódico.
func (ix *Indexer) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(ix.flushInterval)
		defer ticker.Stop()

		ix.log.Info("🚀 Indexer iniciado",
			zap.Duration("flush_interval", ix.flushInterval),
			zap.Int("flush_batch", ix.flushBatch),
		)

		for {
			select {
			case <-ctx.Done():
				ix.log.Info("🛑 Indexer detenido.")
				return
			case <-ticker.C:
				ix.Flush(ctx)
			}
		}
	}()
}

// Flush drena hasta flushBatch documentos y los upserta en bloque.
func (ix *Indexer) Flush(ctx context.Context) {
	batch := ix.drain()
	if len(batch) == 0 {
		return
	}

	err := utils.Retry(ctx, ix.retryAttempts, ix.retryDelay, func() error {
		return ix.repo.BulkUpsert(ctx, batch)
	})
	if err != nil {
		// Tras agotar los reintentos el lote se descarta; solo queda el contador.
		ix.metrics.IndexedFailed.Add(float64(len(batch)))
		ix.log.Error("⚠️ Flush de indexación fallido, lote descartado",
			zap.Int("batch_size", len(batch)),
			zap.Error(err),
		)
		return
	}

	ix.metrics.IndexedSuccess.Add(float64(len(batch)))

	if ix.analytics != nil {
		// El registro analítico es best-effort: no condiciona la indexación.
		if err := ix.analytics.LogBatch(ctx, batch); err != nil {
			ix.log.Warn("no se pudo registrar el lote en analítica", zap.Error(err))
		}
	}
}

func (ix *Indexer) drain() []domain.OrderDocument {
	batch := make([]domain.OrderDocument, 0, ix.flushBatch)
	for len(batch) < ix.flushBatch {
		select {
		case doc := <-ix.buffer:
			batch = append(batch, doc)
		default:
			return batch
		}
	}
	return batch
}
