// Package bootstrap arma el grafo de dependencias compartido por cmd/api y cmd/stockctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/device-stock-api/internal/application/availability"
	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/internal/application/reservation"
	"github.com/jhoicas/device-stock-api/internal/domain/repository"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/cache"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/kafka"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/lock"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/memory"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/metrics"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/postgres"
	"github.com/jhoicas/device-stock-api/pkg/config"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

// Container recursos de larga vida y servicios de aplicación ya cableados.
type Container struct {
	Config *config.Config
	Log    *logger.Logger

	Metrics      *metrics.Collector
	Ledger       *inventory.StockLedger
	Lifecycle    *reservation.Lifecycle
	Sweeper      *reservation.Sweeper
	Availability *availability.Service

	pool         *pgxpool.Pool
	redis        redis.UniversalClient
	records      repository.StockRecordRepository
	reservations repository.ReservationRepository
	mutex        inventory.MutualExclusion
	cache        availability.Cache
	publisher    availability.AlertPublisher
	closers      []func() error
}

// New abre conexiones según la configuración y construye los servicios. Ante un error
// libera lo que ya se había abierto.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log, Metrics: metrics.New()}
	steps := []func() error{
		func() error { return c.setupStorage(ctx) },
		func() error { return c.setupRedis(ctx) },
		c.setupMutex,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	c.setupPublisher()
	c.setupServices()
	return c, nil
}

func (c *Container) setupStorage(ctx context.Context) error {
	if c.Config.DB.Driver == config.StorageDriverMemory {
		c.Log.Warn().Msg("almacén en memoria: sin durabilidad y válido solo para un proceso")
		c.records = memory.NewStockRecordRepository()
		c.reservations = memory.NewReservationRepository()
		return nil
	}

	if c.Config.DB.MigrateOnStart {
		if err := postgres.Migrate(c.Config.DB.ConnectionString(), c.Log.Named("migrate")); err != nil {
			return err
		}
	}
	pool, err := postgres.NewPool(ctx, c.Config.DB)
	if err != nil {
		return fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	c.pool = pool
	c.closers = append(c.closers, func() error { pool.Close(); return nil })
	c.records = postgres.NewStockRecordRepository(pool)
	c.reservations = postgres.NewReservationRepository(pool)
	return nil
}

func (c *Container) setupRedis(ctx context.Context) error {
	if !c.Config.Redis.Enabled() {
		c.cache = memory.NewAvailabilityCache(c.Config.Cache.TTL)
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("conexión a Redis: %w", err)
	}
	c.redis = client
	c.closers = append(c.closers, client.Close)
	c.cache = cache.NewRedisAvailabilityCache(client, c.Config.Cache.TTL)
	return nil
}

func (c *Container) setupMutex() error {
	lc := c.Config.Lock
	switch lc.Backend {
	case config.LockBackendMemory:
		c.mutex = lock.NewMemoryMutex(lc.WaitTimeout)
	case config.LockBackendRedis:
		c.mutex = lock.NewRedisMutex(c.redis, lock.RedisOptions{
			TTL:        lc.TTL,
			Wait:       lc.WaitTimeout,
			RetryDelay: lc.RetryDelay,
		}, c.Log)
	case config.LockBackendZooKeeper:
		zk, err := lock.NewZooKeeperMutex(c.Config.ZooKeeper.Servers, c.Config.ZooKeeper.SessionTimeout, lc.WaitTimeout, c.Log)
		if err != nil {
			return fmt.Errorf("conexión a ZooKeeper: %w", err)
		}
		c.mutex = zk
		c.closers = append(c.closers, func() error { zk.Close(); return nil })
	case config.LockBackendPostgres:
		if c.pool == nil {
			return errors.New("LOCK_BACKEND=postgres requiere DB_DRIVER=postgres")
		}
		c.mutex = lock.NewPostgresAdvisoryMutex(c.pool, lc.WaitTimeout, c.Log)
	default:
		return fmt.Errorf("LOCK_BACKEND desconocido %q", lc.Backend)
	}
	c.Log.Info().Str("backend", lc.Backend).Dur("wait_timeout", lc.WaitTimeout).Msg("exclusión mutua configurada")
	return nil
}

func (c *Container) setupPublisher() {
	if !c.Config.Kafka.Enabled() {
		c.publisher = kafka.NewLogPublisher(c.Log)
		return
	}
	pub := kafka.NewAlertPublisher(kafka.NewWriter(c.Config.Kafka.Brokers, c.Config.Kafka.AlertTopic), c.Log)
	c.publisher = pub
	c.closers = append(c.closers, pub.Close)
}

func (c *Container) setupServices() {
	c.Availability = availability.NewService(c.records, c.cache, c.publisher, c.Log)
	c.Ledger = inventory.NewStockLedger(c.records, c.mutex, c.Log, c.Config.Stock.DefaultAlertThreshold,
		inventory.WithChangeListener(c.Availability),
		inventory.WithMetrics(c.Metrics),
	)
	rc := c.Config.Reservation
	c.Lifecycle = reservation.NewLifecycle(c.Ledger, c.reservations, c.mutex, reservation.Config{
		HoldDuration: rc.HoldDuration,
		WriteRetries: rc.WriteRetries,
		RetryBackoff: rc.RetryBackoff,
	}, c.Log, reservation.WithMetrics(c.Metrics))
	c.Sweeper = reservation.NewSweeper(c.Lifecycle, c.reservations, rc.SweepBatch, c.Log)
}

// Close libera conexiones en orden inverso de apertura.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
