package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/minicommerce/internal/search/infra/outbound/analytics/clickhouse"
	"github.com/davicafu/minicommerce/pkg/utils"
)

// AnalyticsHandler expone los agregados de ClickHouse. Solo se registra
// cuando la analítica está habilitada.
type AnalyticsHandler struct {
	repo *clickhouse.OrderAnalyticsRepo
}

func NewAnalyticsHandler(repo *clickhouse.OrderAnalyticsRepo) *AnalyticsHandler {
	return &AnalyticsHandler{repo: repo}
}

// DailyTrend endpoint GET /analytics/orders/daily?from=2026-08-01&to=2026-09-01
func (h *AnalyticsHandler) DailyTrend(c *gin.Context) {
	const layout = "2006-01-02"

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if s := c.Query("from"); s != "" {
		v, err := time.Parse(layout, s)
		if err != nil {
			utils.SendBadRequest(c, "invalid from date")
			return
		}
		from = v
	}
	if s := c.Query("to"); s != "" {
		v, err := time.Parse(layout, s)
		if err != nil {
			utils.SendBadRequest(c, "invalid to date")
			return
		}
		to = v
	}

	trend, err := h.repo.GetDailyTrend(c.Request.Context(), from, to)
	if err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}
	utils.SendSuccess(c, http.StatusOK, trend)
}

func RegisterAnalyticsRoutes(r *gin.Engine, handler *AnalyticsHandler) {
	r.GET("/analytics/orders/daily", handler.DailyTrend)
}
