package doctor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/domain/booking"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "doctor").Logger()}
}

func parseDoctorID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, booking.ErrDoctorNotFound
	}
	return id, nil
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	doctorID, err := parseDoctorID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, doctorID)
}

func (s *Service) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	return s.repo.List(ctx)
}

// ListSlots returns the doctor's slots by date. With onlyFree set, booked
// slots are left out.
func (s *Service) ListSlots(ctx context.Context, doctorID string, onlyFree bool) ([]*booking.Slot, error) {
	id, err := parseDoctorID(doctorID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListSlots(ctx, id, onlyFree)
}

func (s *Service) CreateDoctor(ctx context.Context, name, image string) (*booking.Doctor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, booking.ErrInvalidInput
	}
	d := &booking.Doctor{Name: name, Image: strings.TrimSpace(image)}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().Str("doctor_id", d.ID.String()).Str("name", d.Name).Msg("doctor created")
	return d, nil
}

// CreateSlot opens a free slot for the doctor at date.
func (s *Service) CreateSlot(ctx context.Context, doctorID string, date time.Time) (*booking.Slot, error) {
	id, err := parseDoctorID(doctorID)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, booking.ErrInvalidInput
	}
	sl := &booking.Slot{DoctorID: id, Date: date.UTC()}
	if err := s.repo.CreateSlot(ctx, sl); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("doctor_id", id.String()).
		Str("slot_id", sl.ID.String()).
		Time("date", sl.Date).
		Msg("slot opened")
	return sl, nil
}
