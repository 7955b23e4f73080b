package booking

import (
	"errors"
	"net/http"
)

// Error is a booking failure with a client-facing message and HTTP status.
type Error struct {
	status  int
	message string
}

func (e *Error) Error() string   { return e.message }
func (e *Error) StatusCode() int { return e.status }

var (
	ErrInvalidInput        = &Error{http.StatusBadRequest, "Invalid data"}
	ErrDoctorNotFound      = &Error{http.StatusNotFound, "Doctor does not exist"}
	ErrSlotNotFound        = &Error{http.StatusNotFound, "Slot does not exist"}
	ErrSlotUnavailable     = &Error{http.StatusConflict, "Appointment cannot be booked to this doctor in that slot"}
	ErrAppointmentNotFound = &Error{http.StatusNotFound, "Appointment does not exist"}
	ErrAccessDenied        = &Error{http.StatusForbidden, "Access denied"}
)

var outcomes = []struct {
	err  *Error
	name string
}{
	{ErrInvalidInput, "invalid_input"},
	{ErrDoctorNotFound, "doctor_not_found"},
	{ErrSlotNotFound, "slot_not_found"},
	{ErrSlotUnavailable, "slot_unavailable"},
	{ErrAppointmentNotFound, "appointment_not_found"},
	{ErrAccessDenied, "access_denied"},
}

// outcome names an error for the booking metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.name
		}
	}
	return "error"
}
