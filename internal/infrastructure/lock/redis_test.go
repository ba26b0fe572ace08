package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/device-stock-api/internal/domain"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/lock"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

func newRedisMutex(t *testing.T, wait time.Duration) (*lock.RedisMutex, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	m := lock.NewRedisMutex(client, lock.RedisOptions{
		Prefix:     "lock:",
		TTL:        3 * time.Second,
		Wait:       wait,
		RetryDelay: 2 * time.Millisecond,
	}, logger.Nop())
	return m, mr
}

func TestRedisMutex_AdquiereYLibera(t *testing.T) {
	m, mr := newRedisMutex(t, time.Second)

	err := m.WithLock(context.Background(), "stock:pixel-9:azul", func(context.Context) error {
		assert.True(t, mr.Exists("lock:stock:pixel-9:azul"), "la clave debe existir mientras se ejecuta fn")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("lock:stock:pixel-9:azul"), "la clave debe borrarse al salir")
}

func TestRedisMutex_Exclusion(t *testing.T) {
	m, _ := newRedisMutex(t, 5*time.Second)
	var inside, violations int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(context.Background(), "k", func(context.Context) error {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.AddInt32(&violations, 1)
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Zero(t, violations)
}

func TestRedisMutex_ClaveOcupadaAgotaEspera(t *testing.T) {
	m, mr := newRedisMutex(t, 30*time.Millisecond)
	require.NoError(t, mr.Set("lock:k", "otro-proceso"))

	called := false
	err := m.WithLock(context.Background(), "k", func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, domain.ErrLockUnavailable))
	assert.False(t, called)

	v, _ := mr.Get("lock:k")
	assert.Equal(t, "otro-proceso", v, "no debe borrar un lock ajeno")
}

func TestRedisMutex_RedisCaidoEsLockUnavailable(t *testing.T) {
	m, mr := newRedisMutex(t, 100*time.Millisecond)
	mr.Close()

	err := m.WithLock(context.Background(), "k", func(context.Context) error { return nil })
	assert.True(t, errors.Is(err, domain.ErrLockUnavailable))
}
