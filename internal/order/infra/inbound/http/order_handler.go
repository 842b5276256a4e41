package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/minicommerce/internal/order/application"
	"github.com/davicafu/minicommerce/internal/order/domain"
	sharedHttp "github.com/davicafu/minicommerce/internal/shared/infra/http/middleware"
	"github.com/davicafu/minicommerce/pkg/utils"
)

// OrderHandler encapsula los endpoints HTTP relacionados con Order
type OrderHandler struct {
	service *application.OrderService
}

// NewOrderHandler crea un nuevo OrderHandler
func NewOrderHandler(service *application.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// ---------------- Handlers ----------------

// CreateOrder endpoint POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req struct {
		SkuID          int64  `json:"skuId" binding:"required"`
		Quantity       int    `json:"quantity" binding:"required,min=1"`
		IdempotencyKey string `json:"idempotencyKey" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	created, err := h.service.CreateOrder(c.Request.Context(), application.CreateOrderParams{
		SkuID:          req.SkuID,
		Quantity:       req.Quantity,
		IdempotencyKey: req.IdempotencyKey,
		CorrelationID:  sharedHttp.CorrelationID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrder):
			utils.SendBadRequest(c, err.Error())
		case errors.Is(err, domain.ErrSkuNotFound):
			utils.SendNotFound(c, err.Error())
		case errors.Is(err, domain.ErrOrderInProgress):
			// Señal al cliente de "en proceso, reintenta más tarde".
			utils.SendConflict(c, err.Error())
		default:
			utils.SendInternalServerError(c, err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}
