package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

var _ inventory.MutualExclusion = (*RedisMutex)(nil)

// releaseScript borra la clave solo si sigue siendo nuestra.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript renueva el TTL solo si la clave sigue siendo nuestra.
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisOptions parámetros del lock sobre Redis.
type RedisOptions struct {
	Prefix     string
	TTL        time.Duration
	Wait       time.Duration
	RetryDelay time.Duration
}

// RedisMutex lock distribuido con SET NX PX + token. Mientras fn corre, un watchdog
// renueva el TTL; si la renovación falla se cancela el contexto entregado a fn.
type RedisMutex struct {
	client redis.UniversalClient
	opts   RedisOptions
	log    *logger.Logger
}

// NewRedisMutex construye el lock. TTL y RetryDelay toman valores por defecto si son cero.
func NewRedisMutex(client redis.UniversalClient, opts RedisOptions, log *logger.Logger) *RedisMutex {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 25 * time.Millisecond
	}
	if opts.Prefix == "" {
		opts.Prefix = "lock:"
	}
	return &RedisMutex{client: client, opts: opts, log: log.Named("redis_lock")}
}

func (m *RedisMutex) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lockKey := m.opts.Prefix + key
	token := uuid.NewString()

	if err := m.acquire(ctx, lockKey, token); err != nil {
		return unavailable(key, err)
	}

	fnCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go m.keepAlive(fnCtx, cancel, lockKey, token, done)

	defer func() {
		close(done)
		cancel()
		rctx, rcancel := releaseContext(ctx)
		defer rcancel()
		if err := releaseScript.Run(rctx, m.client, []string{lockKey}, token).Err(); err != nil {
			m.log.Error().Err(err).Str("key", lockKey).Msg("no se pudo liberar el lock; expirará por TTL")
		}
	}()
	return fn(fnCtx)
}

func (m *RedisMutex) acquire(ctx context.Context, lockKey, token string) error {
	acquireCtx, cancel := acquireContext(ctx, m.opts.Wait)
	defer cancel()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-acquireCtx.Done():
			return acquireCtx.Err()
		case <-timer.C:
		}
		ok, err := m.client.SetNX(acquireCtx, lockKey, token, m.opts.TTL).Result()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			return nil
		}
		timer.Reset(m.opts.RetryDelay)
	}
}

func (m *RedisMutex) keepAlive(ctx context.Context, cancel context.CancelFunc, lockKey, token string, done <-chan struct{}) {
	ticker := time.NewTicker(m.opts.TTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := extendScript.Run(ctx, m.client, []string{lockKey}, token, m.opts.TTL.Milliseconds()).Int()
			if err != nil || n == 0 {
				m.log.Error().Err(err).Str("key", lockKey).Msg("lock perdido durante la sección crítica")
				cancel()
				return
			}
		}
	}
}
