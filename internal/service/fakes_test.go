package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/clinic-booking/internal/apperror"
	"github.com/Shivanand-hulikatti/clinic-booking/internal/model"
)

// memStore is an in-memory stand-in for the PostgreSQL repositories. One
// mutex plays the role of the row locks.
type memStore struct {
	mu           sync.Mutex
	doctors      map[int64]*model.Doctor
	patients     map[int64]*model.Patient
	slots        map[int64]*model.Slot
	appointments []model.Appointment
	nextID       int64
	calls        int
}

func newMemStore() *memStore {
	return &memStore{
		doctors:  map[int64]*model.Doctor{},
		patients: map[int64]*model.Patient{},
		slots:    map[int64]*model.Slot{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addDoctor(name string, max, current int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.doctors[id] = &model.Doctor{ID: id, FullName: name, MaxPatientNumber: max, CurrentPatientNumber: current}
	return id
}

func (m *memStore) addPatient(email string, doctorID *int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.patients[id] = &model.Patient{ID: id, FullName: "Patient " + email, Email: email, DoctorID: doctorID}
	return id
}

func (m *memStore) addSlot(doctorID int64, date time.Time, hour int, available bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.slots[id] = &model.Slot{
		ID:          id,
		DoctorID:    doctorID,
		Date:        date.Format(model.DateLayout),
		StartTime:   fmt.Sprintf("%02d:00", hour),
		EndTime:     fmt.Sprintf("%02d:00", hour+1),
		IsAvailable: available,
	}
	return id
}

func (m *memStore) Register(_ context.Context, p *model.Patient) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	d, ok := m.doctors[*p.DoctorID]
	if !ok {
		return 0, apperror.ErrDoctorNotFound
	}
	if d.IsFull() {
		return 0, apperror.ErrDoctorAtCapacity
	}
	for _, other := range m.patients {
		if other.Email == p.Email {
			return 0, apperror.ErrDuplicateEmail
		}
	}
	stored := *p
	stored.ID = m.id()
	m.patients[stored.ID] = &stored
	d.CurrentPatientNumber++
	return stored.ID, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.patients[id]
	if !ok {
		return nil, apperror.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, p := range m.patients {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperror.ErrPatientNotFound
}

func (m *memStore) AssignedDoctor(_ context.Context, patientID int64) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	p, ok := m.patients[patientID]
	if !ok {
		return nil, nil
	}
	return p.DoctorID, nil
}

// doctorStore adapts memStore to DoctorStore, whose GetByID clashes with the
// patient lookup.
type doctorStore struct{ *memStore }

func (d doctorStore) List(_ context.Context) ([]model.Doctor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Doctor, 0, len(d.doctors))
	for _, doc := range d.doctors {
		out = append(out, *doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d doctorStore) GetByID(_ context.Context, id int64) (*model.Doctor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.doctors[id]
	if !ok {
		return nil, apperror.ErrDoctorNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *memStore) ListOpen(_ context.Context, doctorID int64, today time.Time) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	from := today.Format(model.DateLayout)
	var out []model.Slot
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.IsAvailable && s.Date >= from {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (m *memStore) Reserve(_ context.Context, patientID, slotID int64) (*model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	s, ok := m.slots[slotID]
	if !ok || !s.IsAvailable {
		return nil, apperror.ErrSlotUnavailable
	}
	if _, ok := m.patients[patientID]; !ok {
		return nil, apperror.ErrPatientNotFound
	}
	a := model.Appointment{
		ID:        m.id(),
		PatientID: patientID,
		DoctorID:  s.DoctorID,
		SlotID:    slotID,
		Date:      s.Date,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
	m.appointments = append(m.appointments, a)
	s.IsAvailable = false
	return &a, nil
}

func (m *memStore) views(patientID int64, keep func(date string) bool, desc bool) []model.AppointmentView {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AppointmentView
	for _, a := range m.appointments {
		if a.PatientID != patientID || !keep(a.Date) {
			continue
		}
		out = append(out, model.AppointmentView{
			ID:         a.ID,
			DoctorName: m.doctors[a.DoctorID].FullName,
			Date:       a.Date,
			StartTime:  a.StartTime,
			EndTime:    a.EndTime,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := out[i].Date+out[i].StartTime, out[j].Date+out[j].StartTime
		if desc {
			return ki > kj
		}
		return ki < kj
	})
	return out
}

func (m *memStore) Upcoming(_ context.Context, patientID int64, today time.Time) ([]model.AppointmentView, error) {
	from := today.Format(model.DateLayout)
	return m.views(patientID, func(d string) bool { return d >= from }, false), nil
}

func (m *memStore) History(_ context.Context, patientID int64, today time.Time) ([]model.AppointmentView, error) {
	from := today.Format(model.DateLayout)
	return m.views(patientID, func(d string) bool { return d < from }, true), nil
}

// plainHasher keeps tests fast; bcrypt itself is covered in auth.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }
func (plainHasher) Compare(hash, pw string) (bool, error) {
	return hash == "hashed:"+pw, nil
}
