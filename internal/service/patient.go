package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/auth"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

// PatientService handles registration, sign-in and the patient's own
// records.
type PatientService struct {
	patients     PatientStore
	doctors      DoctorStore
	appointments AppointmentStore
	hasher       auth.Hasher
	gate         auth.Gate
	validate     *validator.Validate
	logger       zerolog.Logger
	now          Clock
}

// NewPatientService constructs a PatientService with its dependencies.
func NewPatientService(
	patients PatientStore,
	doctors DoctorStore,
	appointments AppointmentStore,
	hasher auth.Hasher,
	gate auth.Gate,
	logger zerolog.Logger,
) *PatientService {
	return &PatientService{
		patients:     patients,
		doctors:      doctors,
		appointments: appointments,
		hasher:       hasher,
		gate:         gate,
		validate:     newValidator(),
		logger:       logger.With().Str("component", "patients").Logger(),
		now:          time.Now,
	}
}

// Register creates a patient assigned to req.SelectedDoctorID. The store
// enforces the doctor's capacity and email uniqueness atomically.
func (s *PatientService) Register(ctx context.Context, req model.RegisterRequest) (int64, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validate(s.validate, req); err != nil {
		return 0, err
	}
	birth, err := time.Parse(model.DateLayout, req.BirthDate)
	if err != nil {
		return 0, apperror.BadRequest("birthdate must be a date in YYYY-MM-DD format")
	}
	if birth.After(s.now()) {
		return 0, apperror.BadRequest("birthdate cannot be in the future")
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		return 0, apperror.BadRequest("password must be at most %d bytes", auth.MaxPasswordBytes)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return 0, err
	}
	doctorID := req.SelectedDoctorID
	p := &model.Patient{
		FullName:     req.FullName,
		BirthDate:    birth,
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
		Gender:       req.Gender,
		PasswordHash: hash,
		Address:      req.Address,
		DoctorID:     &doctorID,
	}
	id, err := s.patients.Register(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("register patient: %w", err)
	}
	s.logger.Info().Int64("patient_id", id).Int64("doctor_id", doctorID).Msg("patient registered")
	return id, nil
}

// SignIn exchanges credentials for an access token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *PatientService) SignIn(ctx context.Context, req model.SignInRequest) (*model.SignInResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	p, err := s.patients.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrPatientNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up patient: %w", err)
	}
	ok, err := s.hasher.Compare(p.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrInvalidCredentials
	}

	token, err := s.gate.Issue(ctx, model.Identity{PatientID: p.ID, Email: p.Email})
	if err != nil {
		return nil, err
	}
	return &model.SignInResponse{
		Token: token,
		User:  model.SignInUser{ID: p.ID, FullName: p.FullName, Email: p.Email},
	}, nil
}

// SignOut revokes the caller's token.
func (s *PatientService) SignOut(ctx context.Context, token string) error {
	return s.gate.Revoke(ctx, token)
}

// ListDoctors returns every doctor with current load.
func (s *PatientService) ListDoctors(ctx context.Context) ([]model.Doctor, error) {
	return s.doctors.List(ctx)
}

// GetDoctor returns one doctor or apperror.ErrDoctorNotFound.
func (s *PatientService) GetDoctor(ctx context.Context, doctorID int64) (*model.Doctor, error) {
	return s.doctors.GetByID(ctx, doctorID)
}

func owns(id model.Identity, patientID int64) error {
	if id.PatientID != patientID {
		return apperror.ErrAccessDenied
	}
	return nil
}

// Profile returns the caller's own record.
func (s *PatientService) Profile(ctx context.Context, id model.Identity, patientID int64) (*model.PatientProfile, error) {
	if err := owns(id, patientID); err != nil {
		return nil, err
	}
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	profile := p.Profile()
	return &profile, nil
}

// Upcoming lists the caller's appointments from today on, soonest first.
func (s *PatientService) Upcoming(ctx context.Context, id model.Identity, patientID int64) ([]model.AppointmentView, error) {
	if err := owns(id, patientID); err != nil {
		return nil, err
	}
	return s.appointments.Upcoming(ctx, patientID, s.now.today())
}

// History lists the caller's past appointments, most recent first.
func (s *PatientService) History(ctx context.Context, id model.Identity, patientID int64) ([]model.AppointmentView, error) {
	if err := owns(id, patientID); err != nil {
		return nil, err
	}
	return s.appointments.History(ctx, patientID, s.now.today())
}
