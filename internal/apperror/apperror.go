// Package apperror defines the categorized errors surfaced to API callers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind is the broad category of a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthenticated
	KindForbidden
)

// Status returns the HTTP status code conventionally used for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a categorized failure with a stable machine-readable code and a
// human-readable message. Two Errors match under errors.Is when their codes
// are equal, so a validation error with a field-specific message still
// matches ErrBadRequest.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Code, so wrapped sentinels compare
// equal regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New constructs an Error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(message string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: message, Err: e.Err}
}

var (
	ErrBadRequest         = New(KindValidation, "bad_request", "invalid request")
	ErrDoctorNotFound     = New(KindNotFound, "doctor_not_found", "doctor not found")
	ErrPatientNotFound    = New(KindNotFound, "patient_not_found", "patient not found")
	ErrSlotUnavailable    = New(KindConflict, "slot_unavailable", "selected time slot is no longer available")
	ErrDoctorAtCapacity   = New(KindConflict, "doctor_at_capacity", "selected doctor is at full capacity, please choose another doctor")
	ErrDuplicateEmail     = New(KindConflict, "duplicate_email", "email already exists")
	ErrNoDoctorAssigned   = New(KindValidation, "no_doctor_assigned", "no doctor assigned to the patient")
	ErrUnauthorized       = New(KindUnauthenticated, "unauthorized", "missing or invalid access token")
	ErrInvalidCredentials = New(KindUnauthenticated, "invalid_credentials", "incorrect email or password")
	ErrAccessDenied       = New(KindForbidden, "access_denied", "access denied")
	ErrInternal           = New(KindInternal, "internal", "internal server error")
)

// BadRequest returns a validation error with the given message.
func BadRequest(format string, args ...any) *Error {
	return ErrBadRequest.WithMessage(fmt.Sprintf(format, args...))
}

// Internal wraps an unexpected failure. The cause is kept for logging but
// never rendered to the caller.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: ErrInternal.Code, Message: ErrInternal.Message, Err: err}
}

// From returns the *Error in err's chain, or an internal error wrapping err.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// FromValidation turns validator failures into a single bad-request error
// naming every offending field.
func FromValidation(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest("%s", err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return ErrBadRequest.WithMessage(strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "datetime":
		return fe.Field() + " must be a date in YYYY-MM-DD format"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
