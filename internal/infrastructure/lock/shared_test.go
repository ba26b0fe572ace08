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

	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/internal/domain"
)

// assertExclusion reparte goroutines entre varias instancias (sesiones distintas) sobre
// la misma clave y comprueba que nunca hay dos dentro a la vez.
func assertExclusion(t *testing.T, key string, mutexes ...inventory.MutualExclusion) {
	t.Helper()
	var inside, violations int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		m := mutexes[i%len(mutexes)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(context.Background(), key, func(context.Context) error {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.AddInt32(&violations, 1)
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Zero(t, violations)
}

// assertBusyKeyTimesOut mantiene la clave tomada con holder y verifica que waiter agota su
// espera sin ejecutar fn; al soltar, waiter la obtiene.
func assertBusyKeyTimesOut(t *testing.T, key string, holder, waiter inventory.MutualExclusion) {
	t.Helper()
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- holder.WithLock(context.Background(), key, func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	called := false
	err := waiter.WithLock(context.Background(), key, func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, domain.ErrLockUnavailable), "%v", err)
	assert.False(t, called, "fn no debe ejecutarse sin el lock")

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, waiter.WithLock(context.Background(), key, func(context.Context) error { return nil }))
}

// assertReleasedAfterError el error de fn se propaga y la clave queda libre.
func assertReleasedAfterError(t *testing.T, key string, m inventory.MutualExclusion) {
	t.Helper()
	boom := errors.New("boom")
	err := m.WithLock(context.Background(), key, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, m.WithLock(context.Background(), key, func(context.Context) error { return nil }))
}
