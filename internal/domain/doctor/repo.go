package doctor

import (
	"context"

	"github.com/google/uuid"

	"github.com/medibook/medibook/internal/domain/booking"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	List(ctx context.Context) ([]*Doctor, error)
	ListSlots(ctx context.Context, doctorID uuid.UUID, onlyFree bool) ([]*booking.Slot, error)
	Create(ctx context.Context, d *booking.Doctor) error
	CreateSlot(ctx context.Context, sl *booking.Slot) error
}
