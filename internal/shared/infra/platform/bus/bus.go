package bus

import "context"

type Keyer interface {
	PartitionKey() string
}

// La semántica de topic/nombre y formato del payload la decides en los adapters.
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// Message envuelve un payload ya construido junto con su clave de partición.
// Los adapters que lo reciban deben publicar solo el payload, usando la clave
// para que los eventos del mismo agregado conserven el orden.
type Message struct {
	Key     string
	Payload interface{}
}

func (m Message) PartitionKey() string { return m.Key }

var _ Keyer = Message{}
