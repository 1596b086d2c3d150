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

// PatientRepository handles persistence for patients.
type PatientRepository struct {
	db *pgxpool.Pool
}

// NewPatientRepository constructs a PatientRepository.
func NewPatientRepository(db *pgxpool.Pool) *PatientRepository {
	return &PatientRepository{db: db}
}

const patientCols = `patient_id, full_name, birth_date, phone_number, email, gender,
	password_hash, address, doctor_id`

func scanPatient(row pgx.Row) (*model.Patient, error) {
	var p model.Patient
	err := row.Scan(&p.ID, &p.FullName, &p.BirthDate, &p.PhoneNumber, &p.Email, &p.Gender,
		&p.PasswordHash, &p.Address, &p.DoctorID)
	return &p, err
}

// Register inserts p assigned to p.DoctorID and counts the patient against
// that doctor's capacity, all in one transaction.
//
// The doctor row is locked with SELECT … FOR UPDATE before the capacity
// check, so registrations against one doctor are serialised and
// current_patient_number never exceeds max_patient_number.
func (r *PatientRepository) Register(ctx context.Context, p *model.Patient) (int64, error) {
	if p.DoctorID == nil {
		return 0, apperror.BadRequest("selectedDoctorId is required")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	doctor, err := scanDoctor(tx.QueryRow(ctx,
		`SELECT `+doctorCols+`
		 FROM doctors
		 WHERE doctor_id = $1
		 FOR UPDATE`,
		*p.DoctorID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperror.ErrDoctorNotFound
		}
		return 0, fmt.Errorf("lock doctor row: %w", err)
	}

	if doctor.IsFull() {
		return 0, apperror.ErrDoctorAtCapacity
	}

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO patients (full_name, birth_date, phone_number, email, gender,
			password_hash, address, doctor_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING patient_id`,
		p.FullName, p.BirthDate, p.PhoneNumber, p.Email, p.Gender,
		p.PasswordHash, p.Address, *p.DoctorID,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err, "patients_email_key") {
			return 0, apperror.ErrDuplicateEmail
		}
		return 0, fmt.Errorf("insert patient: %w", err)
	}

	if _, err = tx.Exec(ctx,
		`UPDATE doctors SET current_patient_number = current_patient_number + 1 WHERE doctor_id = $1`,
		*p.DoctorID,
	); err != nil {
		return 0, fmt.Errorf("increment current_patient_number: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	p.ID = id
	return id, nil
}

// GetByID returns a single patient or apperror.ErrPatientNotFound.
func (r *PatientRepository) GetByID(ctx context.Context, id int64) (*model.Patient, error) {
	p, err := scanPatient(r.db.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE patient_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrPatientNotFound
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

// GetByEmail returns the patient registered with email or
// apperror.ErrPatientNotFound.
func (r *PatientRepository) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	p, err := scanPatient(r.db.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrPatientNotFound
		}
		return nil, fmt.Errorf("get patient by email: %w", err)
	}
	return p, nil
}

// AssignedDoctor returns the doctor the patient is rostered with, or nil when
// the patient has none (never assigned, or the doctor was removed).
func (r *PatientRepository) AssignedDoctor(ctx context.Context, patientID int64) (*int64, error) {
	var doctorID *int64
	err := r.db.QueryRow(ctx, `SELECT doctor_id FROM patients WHERE patient_id = $1`, patientID).Scan(&doctorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get assigned doctor: %w", err)
	}
	return doctorID, nil
}
