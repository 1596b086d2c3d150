// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/auth"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

// BookingAPI is the booking engine as seen by the HTTP layer.
type BookingAPI interface {
	ListOpenSlots(ctx context.Context, id model.Identity) ([]model.Slot, error)
	Reserve(ctx context.Context, id model.Identity, req model.ReserveRequest) (*model.Appointment, error)
}

// PatientAPI is the patient registry as seen by the HTTP layer.
type PatientAPI interface {
	Register(ctx context.Context, req model.RegisterRequest) (int64, error)
	SignIn(ctx context.Context, req model.SignInRequest) (*model.SignInResponse, error)
	SignOut(ctx context.Context, token string) error
	ListDoctors(ctx context.Context) ([]model.Doctor, error)
	GetDoctor(ctx context.Context, doctorID int64) (*model.Doctor, error)
	Profile(ctx context.Context, id model.Identity, patientID int64) (*model.PatientProfile, error)
	Upcoming(ctx context.Context, id model.Identity, patientID int64) ([]model.AppointmentView, error)
	History(ctx context.Context, id model.Identity, patientID int64) ([]model.AppointmentView, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all HTTP handlers for the clinic booking API.
type Handler struct {
	booking  BookingAPI
	patients PatientAPI
	gate     auth.Gate
	db       Pinger
	logger   zerolog.Logger
}

// New constructs a Handler.
func New(booking BookingAPI, patients PatientAPI, gate auth.Gate, db Pinger, logger zerolog.Logger) *Handler {
	return &Handler{
		booking:  booking,
		patients: patients,
		gate:     gate,
		db:       db,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// Mount registers every route on r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/signin", h.SignIn)
		r.Get("/doctors", h.ListDoctors)
		r.Get("/doctors/{id}", h.GetDoctor)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.gate, h.logger))
			r.Post("/logout", h.Logout)
			r.Get("/available_times", h.ListOpenSlots)
			r.Post("/book_appointment", h.BookAppointment)
			r.Route("/patients/{id}", func(r chi.Router) {
				r.Get("/", h.Profile)
				r.Get("/upcomingAppointments", h.Upcoming)
				r.Get("/appointmentHistory", h.History)
			})
		})
	})
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as an ErrorResponse. Internal failures are logged
// with their cause and reported generically.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	ae := apperror.From(err)
	if ae.Kind == apperror.KindInternal {
		logger.Error().Err(err).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Code: apperror.ErrInternal.Code, Error: apperror.ErrInternal.Message,
		})
		return
	}
	writeJSON(w, ae.Kind.Status(), model.ErrorResponse{Code: ae.Code, Error: ae.Message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.BadRequest("invalid request body: %s", err.Error())
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.BadRequest("id must be a positive integer")
	}
	return id, nil
}

// caller returns the identity placed in the context by Authenticate.
func caller(r *http.Request) (model.Identity, error) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		return model.Identity{}, apperror.ErrUnauthorized
	}
	return id, nil
}

// emptyIfNil keeps list endpoints returning [] rather than null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ─── Accounts ─────────────────────────────────────────────────────────────────

// Register handles POST /api/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := h.patients.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.RegisterResponse{PatientID: id})
}

// SignIn handles POST /api/signin
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req model.SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp, err := h.patients.SignIn(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.patients.SignOut(r.Context(), tokenFrom(r.Context())); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ─── Doctors ──────────────────────────────────────────────────────────────────

// ListDoctors handles GET /api/doctors
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.patients.ListDoctors(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(doctors))
}

// GetDoctor handles GET /api/doctors/{id}
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	doctor, err := h.patients.GetDoctor(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

// ─── Booking ──────────────────────────────────────────────────────────────────

// ListOpenSlots handles GET /api/available_times
// Returns the open slots of the caller's assigned doctor.
func (h *Handler) ListOpenSlots(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	slots, err := h.booking.ListOpenSlots(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(slots))
}

// BookAppointment handles POST /api/book_appointment
func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req model.ReserveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	appt, err := h.booking.Reserve(r.Context(), id, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// ─── Patient records ──────────────────────────────────────────────────────────

// Profile handles GET /api/patients/{id}
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	h.ownRecord(w, r, func(ctx context.Context, id model.Identity, patientID int64) (any, error) {
		return h.patients.Profile(ctx, id, patientID)
	})
}

// Upcoming handles GET /api/patients/{id}/upcomingAppointments
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	h.ownRecord(w, r, func(ctx context.Context, id model.Identity, patientID int64) (any, error) {
		views, err := h.patients.Upcoming(ctx, id, patientID)
		return emptyIfNil(views), err
	})
}

// History handles GET /api/patients/{id}/appointmentHistory
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	h.ownRecord(w, r, func(ctx context.Context, id model.Identity, patientID int64) (any, error) {
		views, err := h.patients.History(ctx, id, patientID)
		return emptyIfNil(views), err
	})
}

func (h *Handler) ownRecord(w http.ResponseWriter, r *http.Request, load func(context.Context, model.Identity, int64) (any, error)) {
	id, err := caller(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	patientID, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	v, err := load(r.Context(), id, patientID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("health check: database unreachable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
