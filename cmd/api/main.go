package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/device-stock-api/internal/bootstrap"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/scheduler"
	httpRouter "github.com/jhoicas/device-stock-api/internal/interfaces/http"
	"github.com/jhoicas/device-stock-api/pkg/config"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.DB.Driver).
		Str("lock_backend", cfg.Lock.Backend).
		Msg("iniciando aplicación")

	ctx := context.Background()
	container, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar dependencias")
		}
	}()

	jobs := scheduler.New(log)
	if err := jobs.Register("reservation_sweep", cfg.Reservation.SweepSchedule, container.Sweeper.Job()); err != nil {
		log.Fatal().Err(err).Msg("programar barrido de reservas")
	}
	if err := jobs.Register("low_stock_alerts", cfg.Reservation.AlertSchedule, container.Availability.Job()); err != nil {
		log.Fatal().Err(err).Msg("programar alertas de stock bajo")
	}
	jobs.Start()

	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: las rutas /api/admin rechazarán todas las peticiones")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:       container.Ledger,
		Availability: container.Availability,
		Lifecycle:    container.Lifecycle,
		Sweeper:      container.Sweeper,
		Metrics:      container.Metrics,
		JWTSecret:    cfg.JWT.Secret,
		Log:          log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	jobs.Stop(shutdownCtx)

	log.Info().Msg("aplicación detenida")
}
