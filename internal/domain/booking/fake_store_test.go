package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store. The mutex plays the role of the
// conditional UPDATE: claims are serialized and the loser sees booked=true.
type fakeStore struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]*Doctor
	users   map[uuid.UUID]*User
	slots   map[uuid.UUID]*Slot
	appts   map[uuid.UUID]*Appointment
	seq     int64
	clock   time.Time

	updateCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		doctors: make(map[uuid.UUID]*Doctor),
		users:   make(map[uuid.UUID]*User),
		slots:   make(map[uuid.UUID]*Slot),
		appts:   make(map[uuid.UUID]*Appointment),
		clock:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// tick advances the fake clock by one second. Callers hold mu.
func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) addDoctor(name string) *Doctor {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	d := &Doctor{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	f.doctors[d.ID] = d
	return d
}

func (f *fakeStore) addSlot(doctorID uuid.UUID) *Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	s := &Slot{ID: uuid.New(), Date: now.Add(48 * time.Hour), DoctorID: doctorID, CreatedAt: now, UpdatedAt: now}
	f.slots[s.ID] = s
	return s
}

func (f *fakeStore) addUser(username, role string) *User {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	u := &User{ID: uuid.New(), Username: username, Email: username + "@example.com", Role: role, CreatedAt: now, UpdatedAt: now}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) slot(id uuid.UUID) Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.slots[id]
}

func (f *fakeStore) appointmentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appts)
}

func (f *fakeStore) withRelations(a *Appointment) *Appointment {
	cp := *a
	d, u, s := *f.doctors[a.DoctorID], *f.users[a.UserID], *f.slots[a.SlotID]
	cp.Doctor, cp.User, cp.Slot = &d, &u, &s
	return &cp
}

func (f *fakeStore) FindDoctorByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) FindSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) FindAppointmentByID(_ context.Context, id uuid.UUID, ownerID *uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || (ownerID != nil && a.UserID != *ownerID) {
		return nil, ErrAppointmentNotFound
	}
	return f.withRelations(a), nil
}

func (f *fakeStore) ListAppointments(_ context.Context, ownerID *uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []*Appointment
	for _, a := range f.appts {
		if ownerID == nil || a.UserID == *ownerID {
			all = append(all, f.withRelations(a))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Seq > all[j].Seq
	})
	total := len(all)
	if offset >= total {
		return []*Appointment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeStore) CreateAppointmentAndBookSlot(_ context.Context, a *Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[a.SlotID]
	if !ok || s.DoctorID != a.DoctorID || s.Booked {
		return ErrSlotUnavailable
	}
	s.Booked = true
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.seq++
	a.Seq = f.seq
	a.CreatedAt = f.tick()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	f.appts[a.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateAppointment(_ context.Context, id uuid.UUID, ownerID *uuid.UUID, mutate func(*Appointment) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	a, ok := f.appts[id]
	if !ok || (ownerID != nil && a.UserID != *ownerID) {
		return ErrAppointmentNotFound
	}
	cp := *a
	if err := mutate(&cp); err != nil {
		return err
	}
	a.Description, a.Status = cp.Description, cp.Status
	a.UpdatedAt = f.tick()
	return nil
}

func (f *fakeStore) DeleteAppointmentAndReleaseSlot(_ context.Context, id, ownerID uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || a.UserID != ownerID {
		return uuid.Nil, ErrAppointmentNotFound
	}
	delete(f.appts, id)
	f.slots[a.SlotID].Booked = false
	return a.SlotID, nil
}

// countingMetrics records booking outcomes.
type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *countingMetrics) BookingOutcome(op, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[op+":"+outcome]++
}

func (m *countingMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}
