package lock

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/device-stock-api/internal/application/inventory"
)

var _ inventory.MutualExclusion = (*MemoryMutex)(nil)

type memoryEntry struct {
	sem  chan struct{}
	refs int
}

// MemoryMutex mapa de exclusiones por clave dentro del proceso.
// Solo es correcto con una única instancia del servicio.
type MemoryMutex struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	wait    time.Duration
}

// NewMemoryMutex wait <= 0 espera hasta que el contexto termine.
func NewMemoryMutex(wait time.Duration) *MemoryMutex {
	return &MemoryMutex{entries: make(map[string]*memoryEntry), wait: wait}
}

func (m *MemoryMutex) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	entry := m.ref(key)

	acquireCtx, cancel := acquireContext(ctx, m.wait)
	defer cancel()
	select {
	case entry.sem <- struct{}{}:
	case <-acquireCtx.Done():
		m.unref(key, entry)
		return unavailable(key, acquireCtx.Err())
	}

	defer func() {
		<-entry.sem
		m.unref(key, entry)
	}()
	return fn(ctx)
}

func (m *MemoryMutex) ref(key string) *memoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &memoryEntry{sem: make(chan struct{}, 1)}
		m.entries[key] = e
	}
	e.refs++
	return e
}

func (m *MemoryMutex) unref(key string, e *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}
