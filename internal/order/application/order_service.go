package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/minicommerce/internal/observability"
	"github.com/davicafu/minicommerce/internal/order/domain"
	sharedDomain "github.com/davicafu/minicommerce/internal/shared/domain"
)

// defaultUserID sustituye al usuario autenticado hasta que exista login real.
const defaultUserID int64 = 1

// CreateOrderParams agrupa la entrada de CreateOrder una vez validada por el
// handler HTTP.
type CreateOrderParams struct {
	SkuID          int64
	Quantity       int
	IdempotencyKey string
	CorrelationID  string
}

// OrderService implementa la creación idempotente de pedidos.
//
// La máquina de estados por clave de idempotencia es:
//
//	UNLOCKED -> LOCKED("processing") -> COMPLETED("orderId:<id>")
//
// con reversión automática LOCKED -> UNLOCKED al expirar el TTL. El lock de
// Redis solo ahorra latencia e inserts duplicados; la restricción UNIQUE del
// almacén es la única fuente de verdad.
type OrderService struct {
	repo    domain.OrderRepository
	idem    domain.IdempotencyStore
	skus    domain.SkuChecker
	metrics *observability.Metrics
	idemTTL time.Duration
	log     *zap.Logger
}

func NewOrderService(
	repo domain.OrderRepository,
	idem domain.IdempotencyStore,
	skus domain.SkuChecker,
	metrics *observability.Metrics,
	idemTTL time.Duration,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		repo:    repo,
		idem:    idem,
		skus:    skus,
		metrics: metrics,
		idemTTL: idemTTL,
		log:     log,
	}
}

// CreateOrder crea el pedido como máximo una vez por clave de idempotencia.
// Las repeticiones devuelven el mismo orderId que la primera llamada.
func (s *OrderService) CreateOrder(ctx context.Context, p CreateOrderParams) (*domain.CreatedOrder, error) {
	s.metrics.OrdersCreateAttempt.Inc()

	// 0) Validación de entrada
	if p.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotencyKey is required", domain.ErrInvalidOrder)
	}
	if p.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", domain.ErrInvalidOrder)
	}

	// 1) Precondición: el SKU debe existir
	exists, err := s.skus.SkuExists(ctx, p.SkuID)
	if err != nil {
		s.metrics.OrdersCreateFailed.Inc()
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: skuId=%d", domain.ErrSkuNotFound, p.SkuID)
	}

	idemKey := domain.IdemKey(p.IdempotencyKey)

	// 2) Intento de lock consultivo (SETNX con TTL). Si el dueño muere, la
	// clave expira sola; por eso nunca es el mecanismo de consistencia.
	acquired, err := s.idem.Acquire(ctx, idemKey, s.idemTTL)
	if err != nil {
		s.metrics.OrdersCreateFailed.Inc()
		return nil, fmt.Errorf("idempotency store: %w", err)
	}

	if !acquired {
		return s.resolveExisting(ctx, idemKey, p)
	}

	// 3) Con el lock en mano, re-chequeo defensivo contra el almacén: un
	// intento anterior pudo completar el insert y morir antes de escribir el
	// valor completado en la caché.
	if existing, err := s.repo.GetByIdempotencyKey(ctx, p.IdempotencyKey); err == nil {
		s.cacheCompleted(ctx, idemKey, existing.ID)
		s.metrics.OrdersCreateRecovered.Inc()
		return s.toCreated(existing), nil
	} else if !errors.Is(err, domain.ErrOrderNotFound) {
		s.metrics.OrdersCreateFailed.Inc()
		return nil, err
	}

	// 4) Insert atómico: fila de pedido + fila de outbox en una transacción.
	order := &domain.Order{
		UserID:         defaultUserID,
		SkuID:          p.SkuID,
		Quantity:       p.Quantity,
		Status:         domain.OrderStatusCreated,
		IdempotencyKey: p.IdempotencyKey,
		CorrelationID:  p.CorrelationID,
		CreatedAt:      time.Now().UTC(),
	}

	orderID, err := s.repo.CreateWithOutbox(ctx, order, s.buildOutboxEvent(order, p))
	if err != nil {
		// 5) Carrera perdida tras el chequeo del paso 3: otro escritor ganó el
		// UNIQUE. Recuperamos la fila ganadora en una lectura fresca; nunca se
		// propaga como error al cliente.
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			winner, readErr := s.repo.GetByIdempotencyKey(ctx, p.IdempotencyKey)
			if readErr != nil {
				s.metrics.OrdersCreateFailed.Inc()
				return nil, err
			}
			s.cacheCompleted(ctx, idemKey, winner.ID)
			s.metrics.OrdersCreateRecovered.Inc()
			s.log.Info("pedido duplicado recuperado de la fila ganadora",
				zap.Int64("order_id", winner.ID),
				zap.String("idempotency_key", p.IdempotencyKey),
			)
			return s.toCreated(winner), nil
		}
		s.metrics.OrdersCreateFailed.Inc()
		return nil, err
	}
	order.ID = orderID

	// 6) Resultado completado a la caché para que los reintentos resuelvan rápido.
	s.cacheCompleted(ctx, idemKey, orderID)
	s.metrics.OrdersCreateSuccess.Inc()

	s.log.Info("✅ Pedido creado",
		zap.Int64("order_id", orderID),
		zap.Int64("sku_id", p.SkuID),
		zap.String("correlation_id", p.CorrelationID),
	)

	return s.toCreated(order), nil
}

// resolveExisting atiende la llamada que NO obtuvo el lock: camino rápido por
// caché, fallback al almacén y, si nada resuelve, conflicto.
func (s *OrderService) resolveExisting(ctx context.Context, idemKey string, p CreateOrderParams) (*domain.CreatedOrder, error) {
	v, err := s.idem.Get(ctx, idemKey)
	if err != nil {
		s.log.Warn("no se pudo leer el valor de idempotencia, voy al almacén", zap.Error(err))
	}

	// Camino rápido: la caché ya codifica el pedido completado.
	if strings.HasPrefix(v, "orderId:") {
		orderID, parseErr := strconv.ParseInt(strings.TrimPrefix(v, "orderId:"), 10, 64)
		if parseErr == nil {
			s.metrics.OrdersCreateRecovered.Inc()
			return &domain.CreatedOrder{
				OrderID:       orderID,
				Status:        string(domain.OrderStatusCreated),
				CorrelationID: p.CorrelationID,
			}, nil
		}
	}

	// Lectura fresca contra el almacén: cubre el caso "processing" de un
	// intento que completó el insert pero no llegó a actualizar la caché.
	existing, err := s.repo.GetByIdempotencyKey(ctx, p.IdempotencyKey)
	if err == nil {
		s.cacheCompleted(ctx, idemKey, existing.ID)
		s.metrics.OrdersCreateRecovered.Inc()
		return s.toCreated(existing), nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		s.metrics.OrdersCreateFailed.Inc()
		return nil, err
	}

	// Ni caché ni almacén tienen resultado: alguien sigue trabajando.
	return nil, fmt.Errorf("%w: idempotencyKey=%s", domain.ErrOrderInProgress, p.IdempotencyKey)
}

func (s *OrderService) buildOutboxEvent(o *domain.Order, p CreateOrderParams) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "ORDER",
		// AggregateID la completa el repositorio cuando conoce el ID asignado.
		EventType: domain.EventTypeOrderCreated,
		Payload: domain.OrderCreatedPayload{
			SkuID:         p.SkuID,
			Quantity:      p.Quantity,
			UserID:        o.UserID,
			CorrelationID: p.CorrelationID,
			EventType:     domain.EventTypeOrderCreated,
		},
		Status:        sharedDomain.OutboxStatusNew,
		CorrelationID: p.CorrelationID,
		CreatedAt:     time.Now().UTC(),
	}
}

func (s *OrderService) cacheCompleted(ctx context.Context, idemKey string, orderID int64) {
	if err := s.idem.SetResult(ctx, idemKey, domain.IdemValueCompleted(orderID), s.idemTTL); err != nil {
		// La caché es solo una optimización: un fallo aquí no invalida el pedido.
		s.log.Warn("no se pudo cachear el resultado de idempotencia",
			zap.String("key", idemKey),
			zap.Error(err),
		)
	}
}

func (s *OrderService) toCreated(o *domain.Order) *domain.CreatedOrder {
	return &domain.CreatedOrder{
		OrderID:       o.ID,
		Status:        string(o.Status),
		CorrelationID: o.CorrelationID,
	}
}
