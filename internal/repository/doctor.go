package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

// DoctorRepository handles persistence for doctors.
type DoctorRepository struct {
	db *pgxpool.Pool
}

// NewDoctorRepository constructs a DoctorRepository.
func NewDoctorRepository(db *pgxpool.Pool) *DoctorRepository {
	return &DoctorRepository{db: db}
}

const doctorCols = `doctor_id, full_name, max_patient_number, current_patient_number`

func scanDoctor(row pgx.Row) (*model.Doctor, error) {
	var d model.Doctor
	err := row.Scan(&d.ID, &d.FullName, &d.MaxPatientNumber, &d.CurrentPatientNumber)
	return &d, err
}

// List returns all doctors ordered by id.
func (r *DoctorRepository) List(ctx context.Context) ([]model.Doctor, error) {
	rows, err := r.db.Query(ctx, `SELECT `+doctorCols+` FROM doctors ORDER BY doctor_id`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var doctors []model.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, *d)
	}
	return doctors, rows.Err()
}

// GetByID returns a single doctor or apperror.ErrDoctorNotFound.
func (r *DoctorRepository) GetByID(ctx context.Context, id int64) (*model.Doctor, error) {
	d, err := scanDoctor(r.db.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE doctor_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return d, nil
}

// ListIDs returns the identity of every doctor.
func (r *DoctorRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT doctor_id FROM doctors ORDER BY doctor_id`)
	if err != nil {
		return nil, fmt.Errorf("list doctor ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect doctor ids: %w", err)
	}
	return ids, nil
}
