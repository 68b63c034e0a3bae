package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/c14220110/klinik-booking-backend/internal/routes"
	"github.com/c14220110/klinik-booking-backend/migrations"
	"github.com/c14220110/klinik-booking-backend/pkg/storage/mariadb"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "klinik",
		Short: "Booking klinik dan transfer ke SIMRS Khanza",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the booking API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.hub.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	routes.Init(e, a.routes())

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("port", a.cfg.Port).Msg("server listening")
		if err := e.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run booking database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate up: %w", err)
				}
				fmt.Println("migrations complete")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Println("rolled back one migration")
				return nil
			})
		},
	})

	return cmd
}

// withMigrator hanya menyentuh database booking. Skema SIMRS dikelola oleh
// SIMRS Khanza sendiri.
func withMigrator(fn func(m *migrate.Migrate) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := mariadb.Open(cfg.DB, "multiStatements=true")
	if err != nil {
		return err
	}
	defer db.Close()

	dbDriver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "mysql", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	return fn(m)
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Link CONFIRMED bookings to registrations that already exist in SIMRS",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			days, _ := cmd.Flags().GetInt("days")
			if days <= 0 {
				days = a.cfg.ReconcileWindowDays
			}
			now := time.Now()
			since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -days)

			report, err := a.transfer.ReconcileAll(ctx, since)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			for _, res := range report.Linked {
				a.logger.Info().
					Int64("booking_id", res.BookingID).
					Str("no_rawat", res.NoRawat).
					Msg("booking linked")
			}
			a.logger.Info().
				Int("checked", report.Checked).
				Int("linked", len(report.Linked)).
				Int("failed", len(report.Failed)).
				Time("since", since).
				Msg("reconcile finished")
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d booking(s) failed to reconcile", len(report.Failed))
			}
			return nil
		},
	}
	cmd.Flags().Int("days", 0, "Look back this many days (default RECONCILE_WINDOW_DAYS)")
	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			nama, _ := cmd.Flags().GetString("nama")
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			if nama == "" {
				nama = username
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			admin, err := a.admin.CreateAdmin(ctx, nama, username, password)
			if err != nil {
				return err
			}
			fmt.Printf("Admin %s created with id %d\n", admin.Username, admin.ID)
			return nil
		},
	}
	createCmd.Flags().String("nama", "", "Display name")
	createCmd.Flags().String("username", "", "Login username")
	createCmd.Flags().String("password", "", "Login password")

	cmd.AddCommand(createCmd)
	return cmd
}
