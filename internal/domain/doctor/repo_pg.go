package doctor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medibook/medibook/internal/domain/booking"
	"github.com/medibook/medibook/internal/platform/db"
)

type repoPG struct {
	db db.Querier
}

func NewRepoPG(q db.Querier) Repository {
	return &repoPG{db: q}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.db)
}

const (
	doctorCols      = `id, name, image, created_at, updated_at`
	slotCols        = `id, date, booked, doctor_id, created_at, updated_at`
	appointmentCols = `id, doctor_id, user_id, slot_id, description, status, seq, created_at, updated_at`
)

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Image, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func scanSlot(row pgx.Row) (*booking.Slot, error) {
	var sl booking.Slot
	err := row.Scan(&sl.ID, &sl.Date, &sl.Booked, &sl.DoctorID, &sl.CreatedAt, &sl.UpdatedAt)
	return &sl, err
}

func scanAppointment(row pgx.Row) (*booking.Appointment, error) {
	var a booking.Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.UserID, &a.SlotID, &a.Description, &a.Status, &a.Seq, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, booking.ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}

	slots, err := r.querySlots(ctx, `SELECT `+slotCols+` FROM slot WHERE doctor_id = $1 ORDER BY date`, id)
	if err != nil {
		return nil, err
	}
	appts, err := r.queryAppointments(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE doctor_id = $1 ORDER BY created_at DESC, seq DESC`, id)
	if err != nil {
		return nil, err
	}
	d.Slots, d.Appointments = slots, appts
	return d, nil
}

// List loads every doctor ordered by name. Slots and appointments are read
// in one query each and grouped in memory.
func (r *repoPG) List(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctor ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	doctors := make([]*Doctor, 0)
	byID := make(map[uuid.UUID]*Doctor)
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		d.Slots = make([]*booking.Slot, 0)
		d.Appointments = make([]*booking.Appointment, 0)
		doctors = append(doctors, d)
		byID[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if len(doctors) == 0 {
		return doctors, nil
	}

	slots, err := r.querySlots(ctx, `SELECT `+slotCols+` FROM slot ORDER BY date`)
	if err != nil {
		return nil, err
	}
	for _, sl := range slots {
		if d, ok := byID[sl.DoctorID]; ok {
			d.Slots = append(d.Slots, sl)
		}
	}

	appts, err := r.queryAppointments(ctx,
		`SELECT `+appointmentCols+` FROM appointment ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, err
	}
	for _, a := range appts {
		if d, ok := byID[a.DoctorID]; ok {
			d.Appointments = append(d.Appointments, a)
		}
	}
	return doctors, nil
}

func (r *repoPG) ListSlots(ctx context.Context, doctorID uuid.UUID, onlyFree bool) ([]*booking.Slot, error) {
	query := `SELECT ` + slotCols + ` FROM slot WHERE doctor_id = $1`
	if onlyFree {
		query += ` AND booked = false`
	}
	return r.querySlots(ctx, query+` ORDER BY date`, doctorID)
}

func (r *repoPG) Create(ctx context.Context, d *booking.Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO doctor (id, name, image) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Image,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

func (r *repoPG) CreateSlot(ctx context.Context, sl *booking.Slot) error {
	if sl.ID == uuid.Nil {
		sl.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO slot (id, date, booked, doctor_id) VALUES ($1, $2, false, $3)
		 RETURNING booked, created_at, updated_at`,
		sl.ID, sl.Date, sl.DoctorID,
	).Scan(&sl.Booked, &sl.CreatedAt, &sl.UpdatedAt)
	if db.IsForeignKeyViolation(err, "slot_doctor_id_fkey") {
		return booking.ErrDoctorNotFound
	}
	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

func (r *repoPG) querySlots(ctx context.Context, query string, args ...any) ([]*booking.Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	slots := make([]*booking.Slot, 0)
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, sl)
	}
	return slots, rows.Err()
}

func (r *repoPG) queryAppointments(ctx context.Context, query string, args ...any) ([]*booking.Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	appts := make([]*booking.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}
