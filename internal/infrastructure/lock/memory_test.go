package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/device-stock-api/internal/domain"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/lock"
)

func TestMemoryMutex_ExclusionPorClave(t *testing.T) {
	m := lock.NewMemoryMutex(0)
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(context.Background(), "stock:iphone-15:negro", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside, "nunca debe haber dos ejecuciones simultáneas con la misma clave")
}

func TestMemoryMutex_ClavesDistintasConcurrentes(t *testing.T) {
	m := lock.NewMemoryMutex(time.Second)
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = m.WithLock(context.Background(), "a", func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := m.WithLock(context.Background(), "b", func(context.Context) error { return nil })
	assert.NoError(t, err, "una clave distinta no debe esperar")
	close(release)
}

func TestMemoryMutex_TimeoutDevuelveLockUnavailable(t *testing.T) {
	m := lock.NewMemoryMutex(20 * time.Millisecond)
	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.WithLock(context.Background(), "k", func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	called := false
	err := m.WithLock(context.Background(), "k", func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLockUnavailable))
	assert.False(t, called, "fn no debe ejecutarse sin el lock")
}

func TestMemoryMutex_LiberaEnErrorYPanic(t *testing.T) {
	m := lock.NewMemoryMutex(50 * time.Millisecond)
	boom := errors.New("boom")

	err := m.WithLock(context.Background(), "k", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = m.WithLock(context.Background(), "k", func(context.Context) error { panic("x") })
	})

	err = m.WithLock(context.Background(), "k", func(context.Context) error { return nil })
	assert.NoError(t, err, "el lock debe quedar libre tras error y panic")
}
