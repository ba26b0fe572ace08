package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jhoicas/device-stock-api/internal/bootstrap"
	"github.com/jhoicas/device-stock-api/internal/infrastructure/postgres"
	"github.com/jhoicas/device-stock-api/pkg/config"
	"github.com/jhoicas/device-stock-api/pkg/jwt"
	"github.com/jhoicas/device-stock-api/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "stockctl",
	Short:         "Operación del servicio de stock de dispositivos",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Pensado para un scheduler externo (CronJob, systemd timer) cuando la API no corre su cron.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expira las reservas vencidas una vez y termina",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *bootstrap.Container) error {
			report := c.Sweeper.Run(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d expired=%d skipped=%d failed=%d\n",
				report.Scanned, report.Expired, report.Skipped, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d reservas no se pudieron expirar", report.Failed)
			}
			return nil
		})
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Publica las alertas de stock bajo actuales",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd.Context(), func(ctx context.Context, c *bootstrap.Container) error {
			n, err := c.Availability.PublishLowStockAlerts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "alertas publicadas: %d\n", n)
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica las migraciones pendientes de PostgreSQL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := load()
		if err != nil {
			return err
		}
		return postgres.Migrate(cfg.DB.ConnectionString(), log)
	},
}

var (
	tokenUser    string
	tokenRole    string
	tokenMinutes int
)

// La gestión de identidades queda fuera del servicio; esto cubre a operadores y automatizaciones.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un JWT para las rutas /api/admin",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := load()
		if err != nil {
			return err
		}
		exp := cfg.JWT.Expiration
		if tokenMinutes > 0 {
			exp = tokenMinutes
		}
		token, err := jwt.Generate(cfg.JWT.Secret, tokenUser, tokenRole, cfg.JWT.Issuer, exp)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "identificador del operador")
	tokenCmd.Flags().StringVarP(&tokenRole, "role", "r", "admin", "rol incluido en el token")
	tokenCmd.Flags().IntVarP(&tokenMinutes, "minutes", "m", 0, "vigencia en minutos (0 = JWT_EXPIRATION_MINUTES)")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(sweepCmd, alertsCmd, migrateCmd, tokenCmd)
}

func load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("cargar configuración: %w", err)
	}
	return cfg, logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}), nil
}

func withContainer(parent context.Context, fn func(ctx context.Context, c *bootstrap.Container) error) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("inicializar dependencias: %w", err)
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("cerrar dependencias")
		}
	}()
	return fn(ctx, c)
}
