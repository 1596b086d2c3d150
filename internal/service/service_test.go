package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/auth"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

var testNow = time.Date(2026, time.May, 20, 11, 0, 0, 0, time.Local)

func testToday() time.Time {
	return time.Date(2026, time.May, 20, 0, 0, 0, 0, time.UTC)
}

func newServices(store *memStore) (*BookingService, *PatientService, auth.Gate) {
	gate := auth.NewJWTGate("test-secret", time.Hour, nil)
	booking := NewBookingService(store, store, store, zerolog.Nop())
	booking.now = func() time.Time { return testNow }
	patients := NewPatientService(store, doctorStore{store}, store, plainHasher{}, gate, zerolog.Nop())
	patients.now = func() time.Time { return testNow }
	return booking, patients, gate
}

func validRegistration(email string, doctorID int64) model.RegisterRequest {
	return model.RegisterRequest{
		FullName:         "Ada Lovelace",
		BirthDate:        "1990-12-10",
		Gender:           "Female",
		PhoneNumber:      "555-0100",
		Email:            email,
		Password:         "correct-horse",
		Address:          "12 Analytical St",
		SelectedDoctorID: doctorID,
	}
}

// ─── Registration ────────────────────────────────────────────────────────────

func TestRegisterAssignsDoctorAndHashesPassword(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. John Smith", 100, 0)
	_, patients, _ := newServices(store)

	id, err := patients.Register(context.Background(), validRegistration("  Ada@Example.COM ", doctor))
	require.NoError(t, err)

	p := store.patients[id]
	require.NotNil(t, p)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "hashed:correct-horse", p.PasswordHash)
	assert.Equal(t, doctor, *p.DoctorID)
	assert.Equal(t, "1990-12-10", p.BirthDate.Format(model.DateLayout))
	assert.Equal(t, 1, store.doctors[doctor].CurrentPatientNumber)
}

func TestRegisterValidatesBeforeStoreAccess(t *testing.T) {
	cases := map[string]func(*model.RegisterRequest){
		"missing name":    func(r *model.RegisterRequest) { r.FullName = " " },
		"bad email":       func(r *model.RegisterRequest) { r.Email = "nope" },
		"bad gender":      func(r *model.RegisterRequest) { r.Gender = "Robot" },
		"bad birthdate":   func(r *model.RegisterRequest) { r.BirthDate = "10/12/1990" },
		"future birth":    func(r *model.RegisterRequest) { r.BirthDate = "2030-01-01" },
		"short password":  func(r *model.RegisterRequest) { r.Password = "short" },
		"no doctor":       func(r *model.RegisterRequest) { r.SelectedDoctorID = 0 },
		"missing address": func(r *model.RegisterRequest) { r.Address = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			_, patients, _ := newServices(store)
			req := validRegistration("ada@example.com", 1)
			mutate(&req)

			_, err := patients.Register(context.Background(), req)
			assert.ErrorIs(t, err, apperror.ErrBadRequest)
			assert.Zero(t, store.calls)
		})
	}
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. John Smith", 10, 0)
	gate := auth.NewJWTGate("test-secret", time.Hour, nil)
	patients := NewPatientService(store, doctorStore{store}, store, &auth.BcryptHasher{Cost: 4}, gate, zerolog.Nop())
	patients.now = func() time.Time { return testNow }

	// 40 runes pass the max=72 tag but encode to 80 bytes
	req := validRegistration("ada@example.com", doctor)
	req.Password = strings.Repeat("é", 40)

	_, err := patients.Register(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
	assert.Equal(t, apperror.KindValidation, apperror.From(err).Kind)
	assert.Zero(t, store.calls)
	assert.Equal(t, 0, store.doctors[doctor].CurrentPatientNumber)
}

func TestRegisterValidationMessageUsesJSONNames(t *testing.T) {
	_, patients, _ := newServices(newMemStore())
	req := validRegistration("ada@example.com", 1)
	req.PhoneNumber = ""

	_, err := patients.Register(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, apperror.From(err).Message, "phoneNumber is required")
}

func TestRegisterCapacityGate(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. Emily Davis", 2, 0)
	_, patients, _ := newServices(store)
	ctx := context.Background()

	_, err := patients.Register(ctx, validRegistration("a@example.com", doctor))
	require.NoError(t, err)
	_, err = patients.Register(ctx, validRegistration("b@example.com", doctor))
	require.NoError(t, err)

	_, err = patients.Register(ctx, validRegistration("c@example.com", doctor))
	assert.ErrorIs(t, err, apperror.ErrDoctorAtCapacity)
	assert.Equal(t, 2, store.doctors[doctor].CurrentPatientNumber)
	assert.Len(t, store.patients, 2)
}

func TestRegisterConcurrentNeverExceedsCapacity(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. Michael Brown", 5, 0)
	_, patients, _ := newServices(store)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := patients.Register(context.Background(), validRegistration(fmt.Sprintf("p%d@example.com", i), doctor))
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperror.ErrDoctorAtCapacity)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, success)
	assert.Equal(t, 5, store.doctors[doctor].CurrentPatientNumber)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. John Smith", 10, 0)
	_, patients, _ := newServices(store)
	ctx := context.Background()

	_, err := patients.Register(ctx, validRegistration("ada@example.com", doctor))
	require.NoError(t, err)
	_, err = patients.Register(ctx, validRegistration("ADA@example.com", doctor))
	assert.ErrorIs(t, err, apperror.ErrDuplicateEmail)
	assert.Equal(t, 1, store.doctors[doctor].CurrentPatientNumber)
}

func TestRegisterUnknownDoctor(t *testing.T) {
	_, patients, _ := newServices(newMemStore())
	_, err := patients.Register(context.Background(), validRegistration("ada@example.com", 99))
	assert.ErrorIs(t, err, apperror.ErrDoctorNotFound)
}

// ─── Sign-in ─────────────────────────────────────────────────────────────────

func TestSignInIssuesVerifiableToken(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. John Smith", 10, 0)
	_, patients, gate := newServices(store)
	ctx := context.Background()

	id, err := patients.Register(ctx, validRegistration("ada@example.com", doctor))
	require.NoError(t, err)

	resp, err := patients.SignIn(ctx, model.SignInRequest{Email: "Ada@Example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, model.SignInUser{ID: id, FullName: "Ada Lovelace", Email: "ada@example.com"}, resp.User)

	identity, err := gate.Verify(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, model.Identity{PatientID: id, Email: "ada@example.com"}, identity)

	require.NoError(t, patients.SignOut(ctx, resp.Token))
	_, err = gate.Verify(ctx, resp.Token)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. John Smith", 10, 0)
	_, patients, _ := newServices(store)
	ctx := context.Background()

	_, err := patients.Register(ctx, validRegistration("ada@example.com", doctor))
	require.NoError(t, err)

	_, err = patients.SignIn(ctx, model.SignInRequest{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	_, err = patients.SignIn(ctx, model.SignInRequest{Email: "nobody@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	_, err = patients.SignIn(ctx, model.SignInRequest{Email: "", Password: ""})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

// ─── Booking ─────────────────────────────────────────────────────────────────

func TestListOpenSlotsRequiresAssignedDoctor(t *testing.T) {
	store := newMemStore()
	patient := store.addPatient("orphan@example.com", nil)
	booking, _, _ := newServices(store)

	_, err := booking.ListOpenSlots(context.Background(), model.Identity{PatientID: patient})
	assert.ErrorIs(t, err, apperror.ErrNoDoctorAssigned)
}

func TestListOpenSlotsFiltersAndOrders(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. John Smith", 10, 1)
	other := store.addDoctor("Dr. Emily Davis", 10, 0)
	patient := store.addPatient("ada@example.com", &doctor)
	today := testToday()

	late := store.addSlot(doctor, today.AddDate(0, 0, 1), 14, true)
	early := store.addSlot(doctor, today.AddDate(0, 0, 1), 9, true)
	first := store.addSlot(doctor, today, 15, true)
	store.addSlot(doctor, today.AddDate(0, 0, -1), 10, true) // past
	store.addSlot(doctor, today, 10, false)                  // booked
	store.addSlot(other, today, 11, true)                    // other doctor

	booking, _, _ := newServices(store)
	slots, err := booking.ListOpenSlots(context.Background(), model.Identity{PatientID: patient})
	require.NoError(t, err)

	ids := make([]int64, len(slots))
	for i, s := range slots {
		ids[i] = s.ID
		assert.Equal(t, doctor, s.DoctorID)
	}
	assert.Equal(t, []int64{first, early, late}, ids)
	assert.Equal(t, "09:00", slots[1].StartTime)
	assert.Equal(t, "10:00", slots[1].EndTime)
}

func TestReserveRejectsMissingSlotWithoutStoreAccess(t *testing.T) {
	store := newMemStore()
	booking, _, _ := newServices(store)

	_, err := booking.Reserve(context.Background(), model.Identity{PatientID: 1}, model.ReserveRequest{})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = booking.Reserve(context.Background(), model.Identity{PatientID: 1}, model.ReserveRequest{SlotID: -4})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
	assert.Zero(t, store.calls)
}

func TestReserveBooksSlotOnce(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. John Smith", 10, 2)
	p1 := store.addPatient("a@example.com", &doctor)
	p2 := store.addPatient("b@example.com", &doctor)
	slot := store.addSlot(doctor, testToday().AddDate(0, 0, 2), 9, true)
	booking, _, _ := newServices(store)
	ctx := context.Background()

	appt, err := booking.Reserve(ctx, model.Identity{PatientID: p1}, model.ReserveRequest{SlotID: slot})
	require.NoError(t, err)
	assert.Equal(t, doctor, appt.DoctorID)
	assert.Equal(t, "09:00", appt.StartTime)
	assert.Equal(t, "10:00", appt.EndTime)
	assert.False(t, store.slots[slot].IsAvailable)

	_, err = booking.Reserve(ctx, model.Identity{PatientID: p2}, model.ReserveRequest{SlotID: slot})
	assert.ErrorIs(t, err, apperror.ErrSlotUnavailable)
	assert.Len(t, store.appointments, 1)

	_, err = booking.Reserve(ctx, model.Identity{PatientID: p2}, model.ReserveRequest{SlotID: 12345})
	assert.ErrorIs(t, err, apperror.ErrSlotUnavailable)
}

func TestReserveConcurrentExclusivity(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. John Smith", 100, 0)
	slot := store.addSlot(doctor, testToday(), 9, true)
	const n = 10
	patientIDs := make([]int64, n)
	for i := range patientIDs {
		patientIDs[i] = store.addPatient(fmt.Sprintf("p%d@example.com", i), &doctor)
	}
	booking, _, _ := newServices(store)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		won      int
		conflict int
	)
	for _, pid := range patientIDs {
		wg.Add(1)
		go func(pid int64) {
			defer wg.Done()
			_, err := booking.Reserve(context.Background(), model.Identity{PatientID: pid}, model.ReserveRequest{SlotID: slot})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, apperror.ErrSlotUnavailable):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(pid)
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, n-1, conflict)
	assert.Len(t, store.appointments, 1)
}

// ─── Patient records ─────────────────────────────────────────────────────────

func TestRecordsAreOwnerOnly(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. John Smith", 10, 2)
	owner := store.addPatient("a@example.com", &doctor)
	intruder := store.addPatient("b@example.com", &doctor)
	_, patients, _ := newServices(store)
	ctx := context.Background()
	caller := model.Identity{PatientID: intruder}

	_, err := patients.Profile(ctx, caller, owner)
	assert.ErrorIs(t, err, apperror.ErrAccessDenied)
	_, err = patients.Upcoming(ctx, caller, owner)
	assert.ErrorIs(t, err, apperror.ErrAccessDenied)
	_, err = patients.History(ctx, caller, owner)
	assert.ErrorIs(t, err, apperror.ErrAccessDenied)

	profile, err := patients.Profile(ctx, model.Identity{PatientID: owner}, owner)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", profile.Email)
}

func TestUpcomingAndHistorySplitOnToday(t *testing.T) {
	store := newMemStore()
	doctor := store.addDoctor("Dr. John Smith", 10, 1)
	patient := store.addPatient("a@example.com", &doctor)
	today := testToday()
	ctx := context.Background()

	for _, s := range []struct {
		offset, hour int
	}{{-3, 9}, {-1, 10}, {0, 9}, {2, 11}} {
		slot := store.addSlot(doctor, today.AddDate(0, 0, s.offset), s.hour, true)
		_, err := store.Reserve(ctx, patient, slot)
		require.NoError(t, err)
	}
	_, patients, _ := newServices(store)
	me := model.Identity{PatientID: patient}

	upcoming, err := patients.Upcoming(ctx, me, patient)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, today.Format(model.DateLayout), upcoming[0].Date)
	assert.Equal(t, "Dr. John Smith", upcoming[0].DoctorName)

	history, err := patients.History(ctx, me, patient)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, today.AddDate(0, 0, -1).Format(model.DateLayout), history[0].Date)
	assert.Equal(t, today.AddDate(0, 0, -3).Format(model.DateLayout), history[1].Date)
}

func TestDoctorLookups(t *testing.T) {
	store := newMemStore()
	a := store.addDoctor("Dr. John Smith", 100, 0)
	store.addDoctor("Dr. Emily Davis", 80, 0)
	_, patients, _ := newServices(store)
	ctx := context.Background()

	doctors, err := patients.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 2)

	d, err := patients.GetDoctor(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "Dr. John Smith", d.FullName)

	_, err = patients.GetDoctor(ctx, 404)
	assert.ErrorIs(t, err, apperror.ErrDoctorNotFound)
}
