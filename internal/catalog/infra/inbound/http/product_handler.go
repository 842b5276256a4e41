package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/minicommerce/internal/catalog/application"
	"github.com/davicafu/minicommerce/internal/catalog/domain"
	"github.com/davicafu/minicommerce/pkg/utils"
)

// ProductHandler encapsula los endpoints HTTP del catálogo
type ProductHandler struct {
	service *application.ProductQueryService
}

func NewProductHandler(service *application.ProductQueryService) *ProductHandler {
	return &ProductHandler{service: service}
}

// ---------------- Handlers ----------------

// GetProduct endpoint GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.SendBadRequest(c, "invalid product id")
		return
	}

	detail, err := h.service.GetProductDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			utils.SendNotFound(c, err.Error())
			return
		}
		utils.SendInternalServerError(c, err.Error())
		return
	}
	utils.SendSuccess(c, http.StatusOK, detail)
}

func RegisterProductRoutes(r *gin.Engine, handler *ProductHandler) {
	r.GET("/products/:id", handler.GetProduct)
}
