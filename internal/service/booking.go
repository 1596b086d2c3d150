package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

// BookingService lists a patient's open slots and books them.
type BookingService struct {
	patients     PatientStore
	slots        SlotStore
	appointments AppointmentStore
	validate     *validator.Validate
	logger       zerolog.Logger
	now          Clock
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(
	patients PatientStore,
	slots SlotStore,
	appointments AppointmentStore,
	logger zerolog.Logger,
) *BookingService {
	return &BookingService{
		patients:     patients,
		slots:        slots,
		appointments: appointments,
		validate:     newValidator(),
		logger:       logger.With().Str("component", "booking").Logger(),
		now:          time.Now,
	}
}

// ListOpenSlots returns the open slots of the caller's assigned doctor from
// today on.
func (s *BookingService) ListOpenSlots(ctx context.Context, id model.Identity) ([]model.Slot, error) {
	doctorID, err := s.patients.AssignedDoctor(ctx, id.PatientID)
	if err != nil {
		return nil, fmt.Errorf("resolve assigned doctor: %w", err)
	}
	if doctorID == nil {
		return nil, apperror.ErrNoDoctorAssigned
	}
	slots, err := s.slots.ListOpen(ctx, *doctorID, s.now.today())
	if err != nil {
		return nil, fmt.Errorf("list open slots: %w", err)
	}
	return slots, nil
}

// Reserve books req.SlotID for the caller. The request is validated before
// any store access; exclusivity is enforced by the store transaction.
func (s *BookingService) Reserve(ctx context.Context, id model.Identity, req model.ReserveRequest) (*model.Appointment, error) {
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	appt, err := s.appointments.Reserve(ctx, id.PatientID, req.SlotID)
	if err != nil {
		return nil, fmt.Errorf("reserve slot %d: %w", req.SlotID, err)
	}
	s.logger.Info().
		Int64("appointment_id", appt.ID).
		Int64("patient_id", id.PatientID).
		Int64("slot_id", req.SlotID).
		Msg("appointment booked")
	return appt, nil
}
