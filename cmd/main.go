// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/auth"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/database"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/handler"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/repository"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic-booking",
		Short:         "Clinic appointment booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedSlotsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply pending migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(contextOrBackground(cmd))
		},
	}
}

func runServer(ctx context.Context) error {
	env, err := setup(ctx)
	if err != nil {
		return err
	}
	defer env.pool.Close()
	cfg, logger, pool := env.cfg, env.logger, env.pool

	// ── 1. Schema ─────────────────────────────────────────────────────────
	applied, err := database.NewMigrator(pool, database.Migrations()).Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info().Int("applied", applied).Msg("schema up to date")

	// ── 2. Token revocation ───────────────────────────────────────────────
	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		revoker = auth.NewRedisRevoker(client)
		logger.Info().Str("addr", opts.Addr).Msg("connected to redis")
	} else {
		logger.Warn().Msg("REDIS_URL not set, token revocation is process-local")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	patientRepo := repository.NewPatientRepository(pool)
	doctorRepo := repository.NewDoctorRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	apptRepo := repository.NewAppointmentRepository(pool)

	gate := auth.NewJWTGate(cfg.JWTSecret, cfg.JWTExpiresIn, revoker)
	bookingSvc := service.NewBookingService(patientRepo, slotRepo, apptRepo, logger)
	patientSvc := service.NewPatientService(patientRepo, doctorRepo, apptRepo, auth.NewBcryptHasher(), gate, logger)
	h := handler.New(bookingSvc, patientSvc, gate, pool, logger)

	// ── 4. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(logger))
	r.Use(handler.CORS(cfg.CORSOrigins))
	h.Mount(r)

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newLogger(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout)
	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly})
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}
