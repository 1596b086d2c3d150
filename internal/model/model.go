// Package model defines the core domain types for the clinic booking system.
package model

import "time"

// Doctor is a clinician patients can be assigned to.
type Doctor struct {
	ID                   int64  `json:"doctorId"`
	FullName             string `json:"fullName"`
	MaxPatientNumber     int    `json:"maxPatientNumber"`
	CurrentPatientNumber int    `json:"currentPatientNumber"`
}

// IsFull reports whether the doctor's roster has reached capacity.
func (d *Doctor) IsFull() bool {
	return d.CurrentPatientNumber >= d.MaxPatientNumber
}

// Patient is a registered user of the clinic.
type Patient struct {
	ID           int64     `json:"patientId"`
	FullName     string    `json:"fullName"`
	BirthDate    time.Time `json:"-"`
	PhoneNumber  string    `json:"phoneNumber"`
	Email        string    `json:"email"`
	Gender       string    `json:"gender"`
	PasswordHash string    `json:"-"`
	Address      string    `json:"address"`
	DoctorID     *int64    `json:"doctorId"`
}

// PatientProfile is the public view of a patient, without credentials.
type PatientProfile struct {
	ID          int64  `json:"patientId"`
	FullName    string `json:"fullName"`
	BirthDate   string `json:"birthdate"`
	Gender      string `json:"gender"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	DoctorID    *int64 `json:"doctorId"`
}

// Profile strips the credential hash from p.
func (p *Patient) Profile() PatientProfile {
	return PatientProfile{
		ID:          p.ID,
		FullName:    p.FullName,
		BirthDate:   p.BirthDate.Format(DateLayout),
		Gender:      p.Gender,
		PhoneNumber: p.PhoneNumber,
		Email:       p.Email,
		Address:     p.Address,
		DoctorID:    p.DoctorID,
	}
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Slot is an hour-long window for one doctor on one date, bookable once.
type Slot struct {
	ID          int64  `json:"slotId"`
	DoctorID    int64  `json:"doctorId"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsAvailable bool   `json:"-"`
}

// SlotSeed describes a slot row to be created by the availability generator.
// Hours are whole hours since midnight.
type SlotSeed struct {
	DoctorID    int64
	Date        time.Time
	StartHour   int
	EndHour     int
	IsAvailable bool
}

// Appointment is a booked slot.
type Appointment struct {
	ID        int64  `json:"appointmentId"`
	PatientID int64  `json:"-"`
	DoctorID  int64  `json:"doctorId"`
	SlotID    int64  `json:"slotId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// AppointmentView is an appointment joined with its doctor's name, as shown
// in a patient's upcoming list and history.
type AppointmentView struct {
	ID         int64  `json:"appointmentId"`
	DoctorName string `json:"doctor"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}

// Identity is the authenticated caller as vouched for by the access gate.
type Identity struct {
	PatientID int64  `json:"id"`
	Email     string `json:"email"`
}

// RegisterRequest is the payload for creating a patient account.
type RegisterRequest struct {
	FullName         string `json:"fullName" validate:"required,max=255"`
	BirthDate        string `json:"birthdate" validate:"required,datetime=2006-01-02"`
	Gender           string `json:"gender" validate:"required,oneof=Male Female Other"`
	PhoneNumber      string `json:"phoneNumber" validate:"required,max=20"`
	Email            string `json:"email" validate:"required,email,max=255"`
	Password         string `json:"password" validate:"required,min=8,max=72"`
	Address          string `json:"address" validate:"required,max=255"`
	SelectedDoctorID int64  `json:"selectedDoctorId" validate:"required,gt=0"`
}

// RegisterResponse carries the id of a newly created patient.
type RegisterResponse struct {
	PatientID int64 `json:"patientId"`
}

// SignInRequest is the payload for exchanging credentials for a token.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignInUser is the user summary returned on sign-in.
type SignInUser struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// SignInResponse carries the issued access token.
type SignInResponse struct {
	Token string     `json:"token"`
	User  SignInUser `json:"user"`
}

// ReserveRequest is the payload for booking a slot.
type ReserveRequest struct {
	SlotID int64 `json:"slotId" validate:"required,gt=0"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
