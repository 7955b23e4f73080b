package booking

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusScheduled Status = "SCHEDULED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusCancelled:
		return true
	}
	return false
}

// Doctor is the summary of a doctor embedded in an appointment.
type Doctor struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User is the public view of an account. The password hash never leaves the
// identity package.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Slot is a bookable time window of one doctor. Booked is true exactly
// while an appointment references it.
type Slot struct {
	ID        uuid.UUID `json:"id"`
	Date      time.Time `json:"date"`
	Booked    bool      `json:"booked"`
	DoctorID  uuid.UUID `json:"doctorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Appointment books one slot of one doctor for one user. Seq orders the
// listing by insertion and is not serialized. The Doctor, User and Slot
// relations are loaded on reads.
type Appointment struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctorId"`
	UserID      uuid.UUID `json:"userId"`
	SlotID      uuid.UUID `json:"slotId"`
	Description *string   `json:"description"`
	Status      Status    `json:"status"`
	Seq         int64     `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Doctor *Doctor `json:"doctor,omitempty"`
	User   *User   `json:"user,omitempty"`
	Slot   *Slot   `json:"slot,omitempty"`
}

// CreateAppointmentInput is the body of POST /appointments. It has no
// status: new appointments always start PENDING and a client-sent status
// key is dropped by the binder.
type CreateAppointmentInput struct {
	DoctorID    string  `json:"doctorId" validate:"required"`
	SlotID      string  `json:"slotId" validate:"required"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// UpdateAppointmentInput is the body of PUT /appointments/:id.
type UpdateAppointmentInput struct {
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Status      *string `json:"status" validate:"omitempty,oneof=PENDING SCHEDULED CANCELLED"`
}
