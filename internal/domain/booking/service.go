package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/auth"
)

// Service is the booking engine. It checks preconditions in a fixed order
// and delegates every state change to a single Store transaction.
type Service struct {
	store   Store
	logger  zerolog.Logger
	metrics Metrics
}

func NewService(store Store, logger zerolog.Logger, metrics Metrics) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		store:   store,
		logger:  logger.With().Str("component", "booking").Logger(),
		metrics: metrics,
	}
}

// parseID maps a malformed id to notFound: such a record cannot exist.
func parseID(raw string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

// ownerFilter narrows queries to the caller's own appointments unless the
// caller is an ADMIN.
func ownerFilter(caller auth.Identity) *uuid.UUID {
	if caller.IsAdmin() {
		return nil
	}
	id := caller.UserID
	return &id
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// CreateAppointment books in.SlotID with in.DoctorID for the caller. The
// appointment always starts PENDING.
func (s *Service) CreateAppointment(ctx context.Context, caller auth.Identity, in CreateAppointmentInput) (appt *Appointment, err error) {
	defer func() { s.metrics.BookingOutcome("create", outcome(err)) }()

	if strings.TrimSpace(in.DoctorID) == "" || strings.TrimSpace(in.SlotID) == "" {
		return nil, ErrInvalidInput
	}

	doctorID, err := parseID(in.DoctorID, ErrDoctorNotFound)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindDoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	slotID, err := parseID(in.SlotID, ErrSlotNotFound)
	if err != nil {
		return nil, err
	}
	slot, err := s.store.FindSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != doctorID || slot.Booked {
		return nil, ErrSlotUnavailable
	}

	a := &Appointment{
		DoctorID:    doctorID,
		UserID:      caller.UserID,
		SlotID:      slotID,
		Description: trimmed(in.Description),
		Status:      StatusPending,
	}
	if err := s.store.CreateAppointmentAndBookSlot(ctx, a); err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			s.logger.Warn().
				Str("slot_id", slotID.String()).
				Str("user_id", caller.UserID.String()).
				Msg("slot claimed by a concurrent booking")
		}
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("slot_id", slotID.String()).
		Str("user_id", caller.UserID.String()).
		Msg("slot claimed")

	return s.store.FindAppointmentByID(ctx, a.ID, nil)
}

// UpdateAppointment changes description and status. Doctor and slot are
// fixed for the life of an appointment, and the slot stays booked whatever
// the status.
func (s *Service) UpdateAppointment(ctx context.Context, caller auth.Identity, id string, in UpdateAppointmentInput) (appt *Appointment, err error) {
	defer func() { s.metrics.BookingOutcome("update", outcome(err)) }()

	// An unknown status is a malformed request, rejected before any lookup.
	var next Status
	if in.Status != nil {
		next = Status(strings.TrimSpace(*in.Status))
		if !next.Valid() {
			return nil, ErrInvalidInput
		}
	}

	apptID, err := parseID(id, ErrAppointmentNotFound)
	if err != nil {
		return nil, err
	}

	err = s.store.UpdateAppointment(ctx, apptID, ownerFilter(caller), func(a *Appointment) error {
		if next != "" {
			if next == StatusPending && a.Status != StatusPending {
				return ErrInvalidInput
			}
			a.Status = next
		}
		if in.Description != nil {
			a.Description = trimmed(in.Description)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", apptID.String()).
		Str("user_id", caller.UserID.String()).
		Msg("appointment updated")

	return s.store.FindAppointmentByID(ctx, apptID, nil)
}

// DeleteAppointment removes the caller's own appointment and frees its slot.
// ADMINs cannot delete other users' appointments.
func (s *Service) DeleteAppointment(ctx context.Context, caller auth.Identity, id string) (err error) {
	defer func() { s.metrics.BookingOutcome("delete", outcome(err)) }()

	apptID, err := parseID(id, ErrAppointmentNotFound)
	if err != nil {
		return err
	}

	slotID, err := s.store.DeleteAppointmentAndReleaseSlot(ctx, apptID, caller.UserID)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("appointment_id", apptID.String()).
		Str("slot_id", slotID.String()).
		Str("user_id", caller.UserID.String()).
		Msg("slot released")
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, caller auth.Identity, id string) (appt *Appointment, err error) {
	defer func() { s.metrics.BookingOutcome("get", outcome(err)) }()

	apptID, err := parseID(id, ErrAppointmentNotFound)
	if err != nil {
		return nil, err
	}
	a, err := s.store.FindAppointmentByID(ctx, apptID, nil)
	if err != nil {
		return nil, err
	}
	if !caller.CanAccess(a.UserID) {
		return nil, ErrAccessDenied
	}
	return a, nil
}

// ListAppointments returns a page of appointments, newest first. ADMINs see
// every appointment, users only their own.
func (s *Service) ListAppointments(ctx context.Context, caller auth.Identity, limit, offset int) (items []*Appointment, total int, err error) {
	defer func() { s.metrics.BookingOutcome("list", outcome(err)) }()

	if limit <= 0 || offset < 0 {
		return nil, 0, ErrInvalidInput
	}
	return s.store.ListAppointments(ctx, ownerFilter(caller), limit, offset)
}
