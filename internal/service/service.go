// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

// PatientStore is the persistence the patient registry needs.
type PatientStore interface {
	Register(ctx context.Context, p *model.Patient) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Patient, error)
	GetByEmail(ctx context.Context, email string) (*model.Patient, error)
	AssignedDoctor(ctx context.Context, patientID int64) (*int64, error)
}

// DoctorStore reads doctors and their capacity.
type DoctorStore interface {
	List(ctx context.Context) ([]model.Doctor, error)
	GetByID(ctx context.Context, id int64) (*model.Doctor, error)
}

// SlotStore lists bookable slots.
type SlotStore interface {
	ListOpen(ctx context.Context, doctorID int64, today time.Time) ([]model.Slot, error)
}

// AppointmentStore books slots and lists a patient's appointments.
type AppointmentStore interface {
	Reserve(ctx context.Context, patientID, slotID int64) (*model.Appointment, error)
	Upcoming(ctx context.Context, patientID int64, today time.Time) ([]model.AppointmentView, error)
	History(ctx context.Context, patientID int64, today time.Time) ([]model.AppointmentView, error)
}

// Clock returns the current time. Services derive "today" from it.
type Clock func() time.Time

// today is the local calendar date as UTC midnight, matching how DATE columns
// are bound.
func (c Clock) today() time.Time {
	y, m, d := c().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validate(v *validator.Validate, req any) error {
	if err := v.Struct(req); err != nil {
		return apperror.FromValidation(err)
	}
	return nil
}
