package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

// SlotRepository handles persistence for available_time rows.
type SlotRepository struct {
	db *pgxpool.Pool
}

// NewSlotRepository constructs a SlotRepository.
func NewSlotRepository(db *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{db: db}
}

// ListOpen returns the doctor's available slots dated on or after today,
// earliest first.
func (r *SlotRepository) ListOpen(ctx context.Context, doctorID int64, today time.Time) ([]model.Slot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT available_time_id, doctor_id,
			to_char(schedule_date, 'YYYY-MM-DD'),
			to_char(start_time, 'HH24:MI'),
			to_char(end_time, 'HH24:MI'),
			is_available
		 FROM available_time
		 WHERE doctor_id = $1 AND is_available AND schedule_date >= $2
		 ORDER BY schedule_date ASC, start_time ASC`,
		doctorID, today,
	)
	if err != nil {
		return nil, fmt.Errorf("list open slots: %w", err)
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		var s model.Slot
		if err := rows.Scan(&s.ID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime, &s.IsAvailable); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// PurgeBefore deletes every slot dated strictly before day. Appointments on
// purged slots go with them through the cascade.
func (r *SlotRepository) PurgeBefore(ctx context.Context, day time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM available_time WHERE schedule_date < $1`, day)
	if err != nil {
		return 0, fmt.Errorf("purge expired slots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertBatch bulk-loads seeds with the COPY protocol.
func (r *SlotRepository) InsertBatch(ctx context.Context, seeds []model.SlotSeed) (int64, error) {
	if len(seeds) == 0 {
		return 0, nil
	}
	n, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"available_time"},
		[]string{"doctor_id", "schedule_date", "start_time", "end_time", "is_available"},
		pgx.CopyFromSlice(len(seeds), func(i int) ([]any, error) {
			s := seeds[i]
			return []any{s.DoctorID, s.Date, clockHour(s.StartHour), clockHour(s.EndHour), s.IsAvailable}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy slots: %w", err)
	}
	return n, nil
}

func clockHour(h int) pgtype.Time {
	return pgtype.Time{Microseconds: int64(h) * int64(time.Hour/time.Microsecond), Valid: true}
}
