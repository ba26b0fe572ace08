// Package metrics expone contadores del ledger, del ciclo de reservas y de HTTP en Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/device-stock-api/internal/application/inventory"
	"github.com/jhoicas/device-stock-api/internal/application/reservation"
	"github.com/jhoicas/device-stock-api/internal/domain/entity"
)

const namespace = "device_stock"

var (
	_ inventory.Metrics   = (*Collector)(nil)
	_ reservation.Metrics = (*Collector)(nil)
)

// Collector agrupa todas las series del servicio sobre un registro propio.
type Collector struct {
	registry *prometheus.Registry

	stockOps        *prometheus.CounterVec
	clamps          *prometheus.CounterVec
	lockUnavailable *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	writeRetries    *prometheus.CounterVec
	sweepExpired    prometheus.Counter
	sweepFailed     prometheus.Counter
	sweepRuns       prometheus.Counter
	httpDuration    *prometheus.HistogramVec
}

// New registra las series y los colectores de proceso y runtime.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		stockOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "operations_total",
			Help: "Operaciones del ledger por resultado.",
		}, []string{"op", "outcome"}),
		clamps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "clamps_total",
			Help: "Deltas recortados por piso en cero.",
		}, []string{"op"}),
		lockUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "lock_unavailable_total",
			Help: "Operaciones rechazadas por no obtener la sección crítica.",
		}, []string{"op"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reservations", Name: "transitions_total",
			Help: "Reservas que entraron en cada estado.",
		}, []string{"status"}),
		writeRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reservations", Name: "write_retries_total",
			Help: "Reintentos de escritura de reservas.",
		}, []string{"op"}),
		sweepExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sweeper", Name: "expired_total",
			Help: "Reservas expiradas por el barrido.",
		}),
		sweepFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sweeper", Name: "failed_total",
			Help: "Reservas que el barrido no pudo expirar.",
		}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sweeper", Name: "runs_total",
			Help: "Ciclos de barrido completados.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Latencia de las peticiones HTTP.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.stockOps, c.clamps, c.lockUnavailable,
		c.transitions, c.writeRetries,
		c.sweepExpired, c.sweepFailed, c.sweepRuns,
		c.httpDuration,
	)
	return c
}

func (c *Collector) StockOperation(op, outcome string) { c.stockOps.WithLabelValues(op, outcome).Inc() }
func (c *Collector) Clamp(op string)                   { c.clamps.WithLabelValues(op).Inc() }
func (c *Collector) LockUnavailable(op string)         { c.lockUnavailable.WithLabelValues(op).Inc() }

func (c *Collector) ReservationTransition(status entity.ReservationStatus) {
	c.transitions.WithLabelValues(string(status)).Inc()
}

func (c *Collector) ReservationWriteRetry(op string) { c.writeRetries.WithLabelValues(op).Inc() }

func (c *Collector) SweepCompleted(expired, failed int) {
	c.sweepRuns.Inc()
	c.sweepExpired.Add(float64(expired))
	c.sweepFailed.Add(float64(failed))
}

// ObserveHTTP registra la latencia de una petición; route es el patrón, no la URL.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler endpoint de scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry para tests y colectores adicionales.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
