package events

import (
	"context"
	"encoding/json"
	"sync"

	sharedBus "github.com/davicafu/minicommerce/internal/shared/infra/platform/bus"
)

// InMemoryEventBus implementa un bus de eventos para UN solo topic.
// Sustituye a Kafka en despliegues locales; los suscriptores reciben los
// mismos bytes que viajarían por el broker.
type InMemoryEventBus struct {
	subscribers []chan InMemoryMessage
	mu          sync.RWMutex
	topic       string
}

// InMemoryMessage replica la pareja clave/valor de un mensaje de broker.
type InMemoryMessage struct {
	Key   string
	Value []byte
}

// Verifica en tiempo de compilación que cumple la interfaz
var _ sharedBus.EventPublisher = (*InMemoryEventBus)(nil)

// NewInMemoryEventBus crea un bus de eventos para un topic específico.
func NewInMemoryEventBus(topic string) *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make([]chan InMemoryMessage, 0),
		topic:       topic,
	}
}

// Publish envía un evento a todos los suscriptores de este bus.
func (b *InMemoryEventBus) Publish(ctx context.Context, event interface{}) error {
	payload := event
	if m, ok := event.(sharedBus.Message); ok {
		payload = m.Payload
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var key string
	if keyer, ok := event.(sharedBus.Keyer); ok {
		key = keyer.PartitionKey()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, subChan := range b.subscribers {
		select {
		case subChan <- InMemoryMessage{Key: key, Value: data}:
		default:
			// suscriptor saturado: se descarta para no bloquear al publicador
		}
	}
	return nil
}

// Subscribe suscribe un nuevo oyente a este bus.
func (b *InMemoryEventBus) Subscribe(bufferSize int) <-chan InMemoryMessage {
	b.mu.Lock()
	defer b.mu.Unlock()

	subChan := make(chan InMemoryMessage, bufferSize)
	b.subscribers = append(b.subscribers, subChan)
	return subChan
}

// StartChannelConsumer conecta un canal del bus en memoria con un MessageHandler,
// imitando el bucle del ConsumerAdapter de Kafka.
func StartChannelConsumer(ctx context.Context, ch <-chan InMemoryMessage, handler MessageHandler) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
				handler.HandleMessage(ctx, msg.Key, msg.Value)
			}
		}
	}()
}
