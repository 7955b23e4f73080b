package doctor

import (
	"time"

	"github.com/medibook/medibook/internal/domain/booking"
)

// Doctor is a doctor together with its slots and the appointments booked
// against them.
type Doctor struct {
	booking.Doctor
	Slots        []*booking.Slot        `json:"slots"`
	Appointments []*booking.Appointment `json:"appointments"`
}

type CreateDoctorInput struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Image string `json:"image" validate:"omitempty,url"`
}

type CreateSlotInput struct {
	Date time.Time `json:"date" validate:"required"`
}
