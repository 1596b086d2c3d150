// Package generator seeds synthetic doctor availability.
package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

// DoctorLister supplies the doctors to generate slots for.
type DoctorLister interface {
	ListIDs(ctx context.Context) ([]int64, error)
}

// SlotWriter persists generated slots.
type SlotWriter interface {
	PurgeBefore(ctx context.Context, day time.Time) (int64, error)
	InsertBatch(ctx context.Context, seeds []model.SlotSeed) (int64, error)
}

// Config shapes one generator run. Slots are one hour long and cover
// [StartHour, EndHour) on each of Days consecutive days starting today.
type Config struct {
	Days         int
	StartHour    int
	EndHour      int
	Availability float64
	// Seed fixes the random source. Zero seeds from the clock.
	Seed int64
}

// DefaultConfig returns ten days of 09:00-16:00 slots, 70% of them open.
func DefaultConfig() Config {
	return Config{Days: 10, StartHour: 9, EndHour: 16, Availability: 0.7}
}

// Validate rejects windows that would produce no slots or impossible hours.
func (c Config) Validate() error {
	var errs []error
	if c.Days < 1 {
		errs = append(errs, fmt.Errorf("days must be at least 1, got %d", c.Days))
	}
	if c.StartHour < 0 || c.EndHour > 24 || c.StartHour >= c.EndHour {
		errs = append(errs, fmt.Errorf("hour window [%d,%d) is invalid", c.StartHour, c.EndHour))
	}
	if c.Availability < 0 || c.Availability > 1 {
		errs = append(errs, fmt.Errorf("availability must be within [0,1], got %v", c.Availability))
	}
	return errors.Join(errs...)
}

// Result summarizes a run.
type Result struct {
	Purged    int64
	Doctors   int
	Inserted  int64
	Available int
}

// Generator purges stale slots and seeds a fresh availability window.
type Generator struct {
	doctors DoctorLister
	slots   SlotWriter
	cfg     Config
	logger  zerolog.Logger
	now     func() time.Time
	rng     *rand.Rand
}

// New returns a Generator reading doctors from doctors and writing to slots.
func New(doctors DoctorLister, slots SlotWriter, cfg Config, logger zerolog.Logger) *Generator {
	seed := uint64(cfg.Seed)
	if cfg.Seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		doctors: doctors,
		slots:   slots,
		cfg:     cfg,
		logger:  logger.With().Str("component", "generator").Logger(),
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// today is the local calendar date expressed as UTC midnight, which is how
// pgx round-trips DATE values.
func (g *Generator) today() time.Time {
	y, m, d := g.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Run purges past slots and inserts a fresh window for every doctor. Rerunning
// on the same day inserts the window again; existing rows are not merged.
func (g *Generator) Run(ctx context.Context) (Result, error) {
	var res Result
	if err := g.cfg.Validate(); err != nil {
		return res, fmt.Errorf("generator config: %w", err)
	}
	today := g.today()

	purged, err := g.slots.PurgeBefore(ctx, today)
	if err != nil {
		return res, fmt.Errorf("purge past slots: %w", err)
	}
	res.Purged = purged

	ids, err := g.doctors.ListIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list doctors: %w", err)
	}
	res.Doctors = len(ids)
	if len(ids) == 0 {
		g.logger.Warn().Int64("purged", purged).Msg("no doctors found, nothing to generate")
		return res, nil
	}

	seeds := g.plan(today, ids)
	for _, s := range seeds {
		if s.IsAvailable {
			res.Available++
		}
	}

	inserted, err := g.slots.InsertBatch(ctx, seeds)
	if err != nil {
		return res, fmt.Errorf("insert slots: %w", err)
	}
	res.Inserted = inserted

	g.logger.Info().
		Int64("purged", res.Purged).
		Int("doctors", res.Doctors).
		Int64("inserted", res.Inserted).
		Int("available", res.Available).
		Str("from", today.Format(model.DateLayout)).
		Int("days", g.cfg.Days).
		Msg("availability generated")
	return res, nil
}

func (g *Generator) plan(today time.Time, doctorIDs []int64) []model.SlotSeed {
	perDay := g.cfg.EndHour - g.cfg.StartHour
	seeds := make([]model.SlotSeed, 0, g.cfg.Days*perDay*len(doctorIDs))
	for i := 0; i < g.cfg.Days; i++ {
		date := today.AddDate(0, 0, i)
		for h := g.cfg.StartHour; h < g.cfg.EndHour; h++ {
			for _, id := range doctorIDs {
				seeds = append(seeds, model.SlotSeed{
					DoctorID:    id,
					Date:        date,
					StartHour:   h,
					EndHour:     h + 1,
					IsAvailable: g.rng.Float64() < g.cfg.Availability,
				})
			}
		}
	}
	return seeds
}
