package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/device-stock-api/internal/application/availability"
	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/internal/application/reservation"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/metrics"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger       *inventory.StockLedger
	Availability *availability.Service
	Lifecycle    *reservation.Lifecycle
	Sweeper      *reservation.Sweeper
	Metrics      *metrics.Collector // opcional
	JWTSecret    string
	Log          *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Use(observe(deps.Metrics))
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Stock (público)
	stockHandler := NewStockHandler(deps.Ledger, deps.Availability)
	stock := api.Group("/stock")
	stock.Get("/check", stockHandler.Check)
	stock.Get("/devices/:deviceId/availability", stockHandler.DeviceAvailability)
	stock.Get("/alerts", stockHandler.LowStockAlerts)

	// Reservas (llamadas por los flujos de compra)
	reservationHandler := NewReservationHandler(deps.Lifecycle)
	reservations := api.Group("/reservations")
	reservations.Post("/", reservationHandler.Create)
	reservations.Get("/:id", reservationHandler.Get)
	reservations.Post("/:id/allocate", reservationHandler.Allocate)
	reservations.Post("/:id/cancel", reservationHandler.Cancel)
	api.Get("/customers/:customerId/reservations", reservationHandler.ListByCustomer)

	// Administración (JWT + rol admin)
	adminHandler := NewAdminHandler(deps.Ledger, deps.Sweeper, deps.Log)
	admin := api.Group("/admin", AuthMiddleware(deps.JWTSecret), RequireRole(RoleAdmin))
	admin.Put("/stock/capacity", adminHandler.ResizeCapacity)
	admin.Put("/stock/threshold", adminHandler.SetAlertThreshold)
	admin.Post("/reservations/sweep", adminHandler.Sweep)
}

// observe mide la latencia por patrón de ruta para no disparar la cardinalidad con IDs.
func observe(m *metrics.Collector) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		m.ObserveHTTP(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
