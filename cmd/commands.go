package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/config"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/database"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/generator"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/repository"
)

// runtimeEnv is what every subcommand needs before doing its work.
type runtimeEnv struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
}

func setup(ctx context.Context) (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.PoolConfig{
		DSN:      cfg.DSN(),
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	logger.Info().Msg("connected to PostgreSQL")
	return &runtimeEnv{cfg: cfg, logger: logger, pool: pool}, nil
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd)
			env, err := setup(ctx)
			if err != nil {
				return err
			}
			defer env.pool.Close()

			n, err := database.NewMigrator(env.pool, database.Migrations()).Up(ctx)
			if err != nil {
				return err
			}
			env.logger.Info().Int("applied", n).Msg("migrations complete")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd)
			env, err := setup(ctx)
			if err != nil {
				return err
			}
			defer env.pool.Close()

			statuses, err := database.NewMigrator(env.pool, database.Migrations()).Status(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
			for _, s := range statuses {
				state, at := "pending", "-"
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(tw, "%03d\t%s\t%s\t%s\n", s.Version, s.Name, state, at)
			}
			return tw.Flush()
		},
	})

	return cmd
}

func seedSlotsCmd() *cobra.Command {
	var days int
	var seed int64
	cmd := &cobra.Command{
		Use:   "seed-slots",
		Short: "Purge past slots and generate fresh doctor availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd)
			env, err := setup(ctx)
			if err != nil {
				return err
			}
			defer env.pool.Close()

			gcfg := generator.Config{
				Days:         env.cfg.SlotDays,
				StartHour:    env.cfg.SlotStartHour,
				EndHour:      env.cfg.SlotEndHour,
				Availability: env.cfg.SlotAvailability,
				Seed:         env.cfg.SlotSeed,
			}
			if cmd.Flags().Changed("days") {
				if days < 1 {
					return fmt.Errorf("--days must be at least 1")
				}
				gcfg.Days = days
			}
			if cmd.Flags().Changed("seed") {
				gcfg.Seed = seed
			}

			gen := generator.New(
				repository.NewDoctorRepository(env.pool),
				repository.NewSlotRepository(env.pool),
				gcfg,
				env.logger,
			)
			_, err = gen.Run(ctx)
			return err
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "number of days to generate, starting today (overrides SLOT_DAYS)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for availability (overrides SLOT_SEED)")
	return cmd
}
