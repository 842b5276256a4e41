package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/minicommerce/internal/search/application"
	"github.com/davicafu/minicommerce/internal/search/domain"
	"github.com/davicafu/minicommerce/pkg/utils"
)

// SearchHandler expone la búsqueda de pedidos sobre el índice.
type SearchHandler struct {
	service *application.SearchService
}

func NewSearchHandler(service *application.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// SearchOrders endpoint GET /search/orders?userId=&skuId=&correlationId=
func (h *SearchHandler) SearchOrders(c *gin.Context) {
	var f domain.Filter

	if userIDStr := c.Query("userId"); userIDStr != "" {
		v, err := strconv.ParseInt(userIDStr, 10, 64)
		if err != nil {
			utils.SendBadRequest(c, "invalid userId")
			return
		}
		f.UserID = &v
	}

	if skuIDStr := c.Query("skuId"); skuIDStr != "" {
		v, err := strconv.ParseInt(skuIDStr, 10, 64)
		if err != nil {
			utils.SendBadRequest(c, "invalid skuId")
			return
		}
		f.SkuID = &v
	}

	if correlationID := c.Query("correlationId"); correlationID != "" {
		f.CorrelationID = &correlationID
	}

	docs, err := h.service.Search(c.Request.Context(), f)
	if err != nil {
		utils.SendInternalServerError(c, err.Error())
		return
	}
	if docs == nil {
		docs = []domain.OrderDocument{}
	}

	c.JSON(http.StatusOK, docs)
}

func RegisterSearchRoutes(r *gin.Engine, handler *SearchHandler) {
	r.GET("/search/orders", handler.SearchOrders)
}
