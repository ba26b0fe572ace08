package reservation

import (
	"context"
	"time"

	"github.com/jhoicas/device-stock-api/internal/domain/repository"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

// SweepReport resumen de un ciclo de barrido.
type SweepReport struct {
	Scanned  int           `json:"scanned"`
	Expired  int           `json:"expired"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}

// Sweeper recupera el stock de reservas RESERVED vencidas. Cada reserva se procesa de forma
// independiente: un fallo se registra y el lote continúa. Repetir el barrido es inocuo porque
// solo se consultan reservas en RESERVED.
type Sweeper struct {
	lifecycle    *Lifecycle
	reservations repository.ReservationRepository
	batchSize    int
	metrics      Metrics
	log          *logger.Logger
	now          func() time.Time
}

// NewSweeper construye el barrido sobre el mismo ciclo de vida que usan los flujos de compra.
func NewSweeper(lifecycle *Lifecycle, reservations repository.ReservationRepository, batchSize int, log *logger.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Sweeper{
		lifecycle:    lifecycle,
		reservations: reservations,
		batchSize:    batchSize,
		metrics:      lifecycle.metrics,
		log:          log.Named("expiration_sweeper"),
		now:          lifecycle.now,
	}
}

// Run ejecuta un ciclo completo. Una reserva que falla no se reintenta dentro del mismo
// ciclo; el barrido termina cuando un lote no trae reservas nuevas o viene incompleto.
func (s *Sweeper) Run(ctx context.Context) SweepReport {
	start := time.Now()
	var report SweepReport
	attempted := make(map[string]struct{})

	for ctx.Err() == nil {
		batch, err := s.reservations.ListExpired(ctx, s.now(), s.batchSize)
		if err != nil {
			s.log.Error().Err(err).Msg("no se pudieron listar reservas vencidas")
			break
		}
		fresh := 0
		for _, res := range batch {
			if ctx.Err() != nil {
				break
			}
			if _, seen := attempted[res.ID]; seen {
				continue
			}
			attempted[res.ID] = struct{}{}
			fresh++
			report.Scanned++
			expired, err := s.lifecycle.ExpireReservation(ctx, res.ID)
			switch {
			case err != nil:
				report.Failed++
				s.log.Error().Err(err).
					Str("reservation_id", res.ID).
					Str("sku", res.SKU.String()).
					Msg("no se pudo expirar la reserva; se reintentará en el próximo ciclo")
			case expired:
				report.Expired++
			default:
				report.Skipped++
			}
		}
		if len(batch) < s.batchSize || fresh == 0 {
			break
		}
	}

	report.Duration = time.Since(start)
	s.metrics.SweepCompleted(report.Expired, report.Failed)
	s.log.Info().
		Int("scanned", report.Scanned).
		Int("expired", report.Expired).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("barrido de reservas vencidas completado")
	return report
}

// Job punto de entrada sin parámetros para el scheduler.
func (s *Sweeper) Job() func() {
	return func() { s.Run(context.Background()) }
}
