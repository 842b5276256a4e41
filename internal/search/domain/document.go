package domain

import (
	"context"
	"fmt"
	"time"
)

// OrderDocument es el modelo de lectura del pedido en el índice de búsqueda.
// Su identidad es el orderId: reentregas del mismo mensaje sobrescriben el
// mismo documento (upsert), nunca duplican. No es una entidad transaccional.
type OrderDocument struct {
	OrderID       string    `json:"orderId"`
	SkuID         int64     `json:"skuId"`
	Quantity      int       `json:"quantity"`
	UserID        int64     `json:"userId"`
	Status        string    `json:"status"`
	CorrelationID string    `json:"correlationId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Filter agrupa los criterios de búsqueda soportados. Todos opcionales;
// sin filtro se devuelve todo el índice.
type Filter struct {
	UserID        *int64
	SkuID         *int64
	CorrelationID *string
}

// UserOnly indica si la consulta filtra solo por usuario, el único caso con
// caché de resultados.
func (f Filter) UserOnly() bool {
	return f.UserID != nil && f.SkuID == nil && f.CorrelationID == nil
}

// ---------- Interfaces (Ports) ----------

// SearchRepository es el índice de búsqueda.
type SearchRepository interface {
	// BulkUpsert guarda el lote con la identidad del documento como clave;
	// reindexar el mismo orderId debe dejar exactamente un documento.
	BulkUpsert(ctx context.Context, docs []OrderDocument) error

	// Find devuelve los documentos que cumplen el filtro.
	Find(ctx context.Context, f Filter) ([]OrderDocument, error)
}

// AnalyticsRepository es el destino analítico opcional de los lotes indexados.
type AnalyticsRepository interface {
	LogBatch(ctx context.Context, docs []OrderDocument) error
}

// ---------- Helpers comunes (cache keys) ----------

// UserCacheKey forma la clave Redis del resultado de búsqueda por usuario.
func UserCacheKey(userID int64) string {
	return fmt.Sprintf("cache:search:orders:user:%d", userID)
}
