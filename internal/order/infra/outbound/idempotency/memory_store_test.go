package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderDomain "github.com/davicafu/minicommerce/internal/order/domain"
)

func TestMemoryStore_AcquireOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// El segundo intento no obtiene el lock.
	ok, err = s.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, orderDomain.IdemValueProcessing, v)
}

func TestMemoryStore_ExpiredLockIsReacquirable(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.Acquire(ctx, "k", 5*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(10 * time.Millisecond)

	// El TTL venció: la clave desaparece y el lock vuelve a estar libre.
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)

	ok, err = s.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_SetResult(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.SetResult(ctx, "k", orderDomain.IdemValueCompleted(7), time.Minute))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "orderId:7", v)
}
