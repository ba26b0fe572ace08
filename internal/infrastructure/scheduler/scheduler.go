// Package scheduler ejecuta los trabajos periódicos (barrido de reservas, feed de alertas)
// sobre robfig/cron.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/jhoicas/device-stock-api/pkg/logger"
)

// Scheduler registra trabajos con nombre. Una ejecución que sigue en curso hace que se
// salte la siguiente, y un panic en un trabajo no detiene al resto.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
	jobs map[string]cron.EntryID
}

// New crea el scheduler detenido.
func New(log *logger.Logger) *Scheduler {
	l := log.Named("scheduler")
	cl := cronLogger{log: l}
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log:  l,
		jobs: make(map[string]cron.EntryID),
	}
}

// Register agrega un trabajo. spec acepta la sintaxis de cron estándar y descriptores
// como "@every 5m". Un spec vacío deja el trabajo deshabilitado.
func (s *Scheduler) Register(name, spec string, job func()) error {
	if spec == "" {
		s.log.Info().Str("job", name).Msg("trabajo deshabilitado")
		return nil
	}
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("trabajo %q ya registrado", name)
	}
	id, err := s.cron.AddFunc(spec, func() {
		s.log.Debug().Str("job", name).Msg("ejecutando trabajo")
		job()
	})
	if err != nil {
		return fmt.Errorf("programar %q (%s): %w", name, spec, err)
	}
	s.jobs[name] = id
	s.log.Info().Str("job", name).Str("schedule", spec).Msg("trabajo programado")
	return nil
}

// Jobs cantidad de trabajos activos.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start arranca el scheduler en segundo plano.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop detiene el scheduler y espera a que terminen los trabajos en curso o a que venza ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("apagado con trabajos aún en ejecución")
	}
}

// cronLogger adapta el logger del servicio a cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
