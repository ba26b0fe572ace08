package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

var _ inventory.MutualExclusion = (*PostgresAdvisoryMutex)(nil)

// PostgresAdvisoryMutex usa pg_advisory_lock de sesión sobre una conexión dedicada del pool.
// Sirve para varias instancias que comparten la misma base sin otro sustrato de coordinación.
type PostgresAdvisoryMutex struct {
	pool *pgxpool.Pool
	wait time.Duration
	log  *logger.Logger
}

// NewPostgresAdvisoryMutex construye el lock sobre el pool.
func NewPostgresAdvisoryMutex(pool *pgxpool.Pool, wait time.Duration, log *logger.Logger) *PostgresAdvisoryMutex {
	return &PostgresAdvisoryMutex{pool: pool, wait: wait, log: log.Named("pg_advisory_lock")}
}

func (m *PostgresAdvisoryMutex) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	acquireCtx, cancel := acquireContext(ctx, m.wait)
	defer cancel()

	conn, err := m.pool.Acquire(acquireCtx)
	if err != nil {
		return unavailable(key, fmt.Errorf("obtener conexión: %w", err))
	}
	if _, err := conn.Exec(acquireCtx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, key); err != nil {
		conn.Release()
		return unavailable(key, err)
	}

	defer func() {
		rctx, rcancel := releaseContext(ctx)
		defer rcancel()
		if _, err := conn.Exec(rctx, `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, key); err != nil {
			// Cerrar la sesión libera todos sus advisory locks.
			m.log.Error().Err(err).Str("key", key).Msg("no se pudo liberar el advisory lock; cerrando conexión")
			_ = conn.Conn().Close(rctx)
		}
		conn.Release()
	}()
	return fn(ctx)
}
