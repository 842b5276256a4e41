package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// HeaderCorrelationID es la cabecera de correlación que propagan los clientes.
	HeaderCorrelationID = "X-Correlation-Id"

	contextKeyCorrelationID = "correlation_id"
)

// Correlation lee la cabecera de correlación o genera un uuid nuevo, y lo
// deja en el contexto de gin y en la respuesta.
func Correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(contextKeyCorrelationID, correlationID)
		c.Header(HeaderCorrelationID, correlationID)
		c.Next()
	}
}

// CorrelationID recupera el id de correlación de la petición actual.
func CorrelationID(c *gin.Context) string {
	return c.GetString(contextKeyCorrelationID)
}

// RequestLogger registra cada petición con latencia y estado.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("correlation_id", CorrelationID(c)),
		)
	}
}
