package booking

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence boundary of the booking engine. Lookups return
// the package's not-found errors; ownerID, when non-nil, restricts a lookup
// or mutation to appointments owned by that user.
type Store interface {
	FindDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	FindSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	FindAppointmentByID(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, ownerID *uuid.UUID, limit, offset int) ([]*Appointment, int, error)

	// CreateAppointmentAndBookSlot claims a.SlotID for a.DoctorID and inserts
	// a in one transaction. A slot that is already booked, or that belongs to
	// another doctor, yields ErrSlotUnavailable and nothing is written.
	CreateAppointmentAndBookSlot(ctx context.Context, a *Appointment) error

	// UpdateAppointment locks the appointment, lets mutate change it and
	// persists description and status. An error from mutate aborts the update.
	UpdateAppointment(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID, mutate func(*Appointment) error) error

	// DeleteAppointmentAndReleaseSlot removes the owner's appointment and frees
	// its slot in one transaction, returning the released slot id.
	DeleteAppointmentAndReleaseSlot(ctx context.Context, id, ownerID uuid.UUID) (uuid.UUID, error)
}

// Metrics receives one outcome per booking operation.
type Metrics interface {
	BookingOutcome(operation, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) BookingOutcome(string, string) {}
