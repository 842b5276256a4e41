package relayer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/minicommerce/internal/observability"
	sharedDomain "github.com/davicafu/minicommerce/internal/shared/domain"
)

// BacklogGauge refresca periódicamente los gauges NEW/SENT/FAILED del outbox.
type BacklogGauge struct {
	repo     sharedDomain.OutboxRepository
	metrics  *observability.Metrics
	interval time.Duration
	log      *zap.Logger
}

func NewBacklogGauge(repo sharedDomain.OutboxRepository, metrics *observability.Metrics, interval time.Duration, log *zap.Logger) *BacklogGauge {
	return &BacklogGauge{
		repo:     repo,
		metrics:  metrics,
		interval: interval,
		log:      log,
	}
}

func (g *BacklogGauge) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Refresh(ctx)
			}
		}
	}()
}

func (g *BacklogGauge) Refresh(ctx context.Context) {
	statuses := []struct {
		status sharedDomain.OutboxStatus
		gauge  interface{ Set(float64) }
	}{
		{sharedDomain.OutboxStatusNew, g.metrics.OutboxBacklogNew},
		{sharedDomain.OutboxStatusSent, g.metrics.OutboxBacklogSent},
		{sharedDomain.OutboxStatusFailed, g.metrics.OutboxBacklogFailed},
	}

	for _, s := range statuses {
		n, err := g.repo.CountByStatus(ctx, s.status)
		if err != nil {
			g.log.Warn("no se pudo contar el backlog de outbox",
				zap.String("status", string(s.status)),
				zap.Error(err),
			)
			continue
		}
		s.gauge.Set(float64(n))
	}
}
