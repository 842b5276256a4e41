package contracts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/minicommerce/internal/observability"
	orderApp "github.com/davicafu/minicommerce/internal/order/application"
	orderDomain "github.com/davicafu/minicommerce/internal/order/domain"
	orderHttp "github.com/davicafu/minicommerce/internal/order/infra/inbound/http"
	"github.com/davicafu/minicommerce/internal/order/infra/outbound/idempotency"
	sharedMiddleware "github.com/davicafu/minicommerce/internal/shared/infra/http/middleware"
	"github.com/davicafu/minicommerce/tests/mocks"
)

// createdOrderResponse define el formato que esperamos en la respuesta JSON.
type createdOrderResponse struct {
	OrderID       int64  `json:"orderId"`
	Status        string `json:"status"`
	CorrelationID string `json:"correlationId"`
}

func newOrderRouter(repo *mocks.InMemoryOrderRepo, idem orderDomain.IdempotencyStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	service := orderApp.NewOrderService(
		repo, idem,
		&mocks.StubSkuChecker{Existing: map[int64]bool{42: true}},
		observability.NewMetrics(prometheus.NewRegistry()),
		2*time.Minute,
		zap.NewNop(),
	)

	router := gin.New()
	router.Use(sharedMiddleware.Correlation())
	orderHttp.RegisterOrderRoutes(router, orderHttp.NewOrderHandler(service))
	return router
}

func postOrder(router *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrder_HTTPContract(t *testing.T) {
	repo := mocks.NewInMemoryOrderRepo()
	router := newOrderRouter(repo, idempotency.NewMemoryStore())

	rec := postOrder(router, `{"skuId":42,"quantity":2,"idempotencyKey":"k-http-1"}`, map[string]string{
		sharedMiddleware.HeaderCorrelationID: "corr-http",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createdOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.OrderID)
	assert.Equal(t, "CREATED", resp.Status)
	assert.Equal(t, "corr-http", resp.CorrelationID)

	// El pedido dejó su evento de outbox.
	assert.Len(t, repo.Outbox, 1)
}

func TestCreateOrder_HTTPContract_RepeatedKey(t *testing.T) {
	repo := mocks.NewInMemoryOrderRepo()
	router := newOrderRouter(repo, idempotency.NewMemoryStore())

	first := postOrder(router, `{"skuId":42,"quantity":1,"idempotencyKey":"k-rep"}`, nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := postOrder(router, `{"skuId":42,"quantity":1,"idempotencyKey":"k-rep"}`, nil)
	require.Equal(t, http.StatusCreated, second.Code)

	var r1, r2 createdOrderResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &r1))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &r2))
	assert.Equal(t, r1.OrderID, r2.OrderID)
	assert.Len(t, repo.Outbox, 1)
}

func TestCreateOrder_HTTPContract_Validation(t *testing.T) {
	router := newOrderRouter(mocks.NewInMemoryOrderRepo(), idempotency.NewMemoryStore())

	// Falta idempotencyKey
	rec := postOrder(router, `{"skuId":42,"quantity":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Cantidad inválida
	rec = postOrder(router, `{"skuId":42,"quantity":0,"idempotencyKey":"k-bad"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_HTTPContract_SkuNotFound(t *testing.T) {
	router := newOrderRouter(mocks.NewInMemoryOrderRepo(), idempotency.NewMemoryStore())

	rec := postOrder(router, `{"skuId":999,"quantity":1,"idempotencyKey":"k-404"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrder_HTTPContract_Conflict(t *testing.T) {
	idem := idempotency.NewMemoryStore()
	router := newOrderRouter(mocks.NewInMemoryOrderRepo(), idem)

	// Otro intento tiene el lock y aún no hay resultado.
	acquired, err := idem.Acquire(context.Background(), orderDomain.IdemKey("k-busy"), time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	rec := postOrder(router, `{"skuId":42,"quantity":1,"idempotencyKey":"k-busy"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
