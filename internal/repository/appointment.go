package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

// AppointmentRepository handles persistence for appointments.
type AppointmentRepository struct {
	db *pgxpool.Pool
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(db *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Reserve converts an open slot into an appointment for patientID.
//
// ─────────────────────────────────────────────────────────────────────────────
// EXCLUSIVITY
// ─────────────────────────────────────────────────────────────────────────────
//
// The slot row is read with
//
//	SELECT … WHERE available_time_id = $1 AND is_available FOR UPDATE
//
// which takes an exclusive row lock for the rest of the transaction. A
// concurrent Reserve on the same slot blocks on that lock; once the holder
// commits, PostgreSQL re-evaluates the WHERE clause against the new row
// version, sees is_available = false and returns no row, so the waiter fails
// with apperror.ErrSlotUnavailable. Exactly one caller wins.
//
// Every early return happens before Commit, and the deferred Rollback undoes
// the appointment insert if the flag update (or anything else) fails, so a
// failed attempt leaves the slot exactly as it was.
// ─────────────────────────────────────────────────────────────────────────────
func (r *AppointmentRepository) Reserve(ctx context.Context, patientID, slotID int64) (*model.Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	appt := &model.Appointment{PatientID: patientID, SlotID: slotID}
	err = tx.QueryRow(ctx,
		`SELECT doctor_id,
			to_char(schedule_date, 'YYYY-MM-DD'),
			to_char(start_time, 'HH24:MI'),
			to_char(end_time, 'HH24:MI')
		 FROM available_time
		 WHERE available_time_id = $1 AND is_available
		 FOR UPDATE`,
		slotID,
	).Scan(&appt.DoctorID, &appt.Date, &appt.StartTime, &appt.EndTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrSlotUnavailable
		}
		return nil, fmt.Errorf("lock slot row: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO appointments (patient_id, doctor_id, available_time_id)
		 VALUES ($1, $2, $3)
		 RETURNING appointment_id`,
		patientID, appt.DoctorID, slotID,
	).Scan(&appt.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, apperror.ErrPatientNotFound
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if _, err = tx.Exec(ctx,
		`UPDATE available_time SET is_available = FALSE WHERE available_time_id = $1`,
		slotID,
	); err != nil {
		return nil, fmt.Errorf("mark slot booked: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return appt, nil
}

// Upcoming lists the patient's appointments dated today or later, soonest
// first.
func (r *AppointmentRepository) Upcoming(ctx context.Context, patientID int64, today time.Time) ([]model.AppointmentView, error) {
	return r.listViews(ctx,
		`WHERE a.patient_id = $1 AND t.schedule_date >= $2
		 ORDER BY t.schedule_date ASC, t.start_time ASC`,
		patientID, today)
}

// History lists the patient's appointments dated before today, most recent
// first.
func (r *AppointmentRepository) History(ctx context.Context, patientID int64, today time.Time) ([]model.AppointmentView, error) {
	return r.listViews(ctx,
		`WHERE a.patient_id = $1 AND t.schedule_date < $2
		 ORDER BY t.schedule_date DESC, t.start_time DESC`,
		patientID, today)
}

func (r *AppointmentRepository) listViews(ctx context.Context, filter string, args ...any) ([]model.AppointmentView, error) {
	rows, err := r.db.Query(ctx,
		`SELECT a.appointment_id, d.full_name,
			to_char(t.schedule_date, 'YYYY-MM-DD'),
			to_char(t.start_time, 'HH24:MI'),
			to_char(t.end_time, 'HH24:MI')
		 FROM appointments a
		 JOIN doctors d ON a.doctor_id = d.doctor_id
		 JOIN available_time t ON a.available_time_id = t.available_time_id
		 `+filter,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var views []model.AppointmentView
	for rows.Next() {
		var v model.AppointmentView
		if err := rows.Scan(&v.ID, &v.DoctorName, &v.Date, &v.StartTime, &v.EndTime); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}
