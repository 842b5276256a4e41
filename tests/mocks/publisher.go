package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	sharedBus "github.com/davicafu/minicommerce/internal/shared/infra/platform/bus"
)

// MockPublisher simula un publisher con expectativas de testify.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event interface{}) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var _ sharedBus.EventPublisher = (*MockPublisher)(nil)

// CapturingPublisher guarda los mensajes publicados y permite inyectar
// fallos: los primeros FailFirst intentos devuelven Err.
type CapturingPublisher struct {
	Messages  []sharedBus.Message
	Err       error
	FailFirst int

	attempts int
	mu       sync.Mutex
}

func (p *CapturingPublisher) Publish(ctx context.Context, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempts++
	if p.Err != nil && (p.FailFirst == 0 || p.attempts <= p.FailFirst) {
		return p.Err
	}

	if m, ok := event.(sharedBus.Message); ok {
		p.Messages = append(p.Messages, m)
	} else {
		p.Messages = append(p.Messages, sharedBus.Message{Payload: event})
	}
	return nil
}

// Attempts devuelve cuántas veces se llamó a Publish, incluidos los fallos.
func (p *CapturingPublisher) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

var _ sharedBus.EventPublisher = (*CapturingPublisher)(nil)
