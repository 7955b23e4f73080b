package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medibook/medibook/internal/platform/db"
)

type storePG struct {
	db db.Beginner
}

// NewStorePG returns a Store backed by PostgreSQL. b is usually a
// *pgxpool.Pool.
func NewStorePG(b db.Beginner) Store {
	return &storePG{db: b}
}

func (s *storePG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, s.db)
}

func (s *storePG) FindDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT id, name, image, created_at, updated_at FROM doctor WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Image, &d.CreatedAt, &d.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find doctor: %w", err)
	}
	return &d, nil
}

func (s *storePG) FindSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	var sl Slot
	err := s.conn(ctx).QueryRow(ctx,
		`SELECT id, date, booked, doctor_id, created_at, updated_at FROM slot WHERE id = $1`, id,
	).Scan(&sl.ID, &sl.Date, &sl.Booked, &sl.DoctorID, &sl.CreatedAt, &sl.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find slot: %w", err)
	}
	return &sl, nil
}

const appointmentCols = `a.id, a.doctor_id, a.user_id, a.slot_id, a.description, a.status, a.seq, a.created_at, a.updated_at,
	d.id, d.name, d.image, d.created_at, d.updated_at,
	u.id, u.username, u.email, u.phone, u.role, u.created_at, u.updated_at,
	s.id, s.date, s.booked, s.doctor_id, s.created_at, s.updated_at`

const appointmentJoins = ` FROM appointment a
	JOIN doctor d ON d.id = a.doctor_id
	JOIN users u ON u.id = a.user_id
	JOIN slot s ON s.id = a.slot_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	a := Appointment{Doctor: &Doctor{}, User: &User{}, Slot: &Slot{}}
	err := row.Scan(
		&a.ID, &a.DoctorID, &a.UserID, &a.SlotID, &a.Description, &a.Status, &a.Seq, &a.CreatedAt, &a.UpdatedAt,
		&a.Doctor.ID, &a.Doctor.Name, &a.Doctor.Image, &a.Doctor.CreatedAt, &a.Doctor.UpdatedAt,
		&a.User.ID, &a.User.Username, &a.User.Email, &a.User.Phone, &a.User.Role, &a.User.CreatedAt, &a.User.UpdatedAt,
		&a.Slot.ID, &a.Slot.Date, &a.Slot.Booked, &a.Slot.DoctorID, &a.Slot.CreatedAt, &a.Slot.UpdatedAt,
	)
	return &a, err
}

func (s *storePG) FindAppointmentByID(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentCols + appointmentJoins + ` WHERE a.id = $1`
	args := []any{id}
	if ownerID != nil {
		query += ` AND a.user_id = $2`
		args = append(args, *ownerID)
	}

	a, err := scanAppointment(s.conn(ctx).QueryRow(ctx, query, args...))
	if db.IsNoRows(err) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find appointment: %w", err)
	}
	return a, nil
}

func (s *storePG) ListAppointments(ctx context.Context, ownerID *uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	where := ""
	var args []any
	if ownerID != nil {
		where = ` WHERE a.user_id = $1`
		args = append(args, *ownerID)
	}

	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	n := len(args)
	query := `SELECT ` + appointmentCols + appointmentJoins + where +
		` ORDER BY a.created_at DESC, a.seq DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, limit, offset)

	rows, err := s.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	items := make([]*Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan appointment: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return items, total, nil
}

func (s *storePG) CreateAppointmentAndBookSlot(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	err := db.WithTx(ctx, s.db, func(ctx context.Context) error {
		// The conditional update is the claim: of two concurrent bookings only
		// one sees booked = false under read committed.
		tag, err := s.conn(ctx).Exec(ctx,
			`UPDATE slot SET booked = true, updated_at = NOW()
			 WHERE id = $1 AND doctor_id = $2 AND booked = false`,
			a.SlotID, a.DoctorID)
		if err != nil {
			return fmt.Errorf("claim slot: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrSlotUnavailable
		}

		return s.conn(ctx).QueryRow(ctx,
			`INSERT INTO appointment (id, doctor_id, user_id, slot_id, description, status)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING seq, created_at, updated_at`,
			a.ID, a.DoctorID, a.UserID, a.SlotID, a.Description, a.Status,
		).Scan(&a.Seq, &a.CreatedAt, &a.UpdatedAt)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSlotUnavailable) || db.IsUniqueViolation(err, "appointment_slot_id_key") {
		return ErrSlotUnavailable
	}
	return fmt.Errorf("create appointment: %w", err)
}

func (s *storePG) UpdateAppointment(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID, mutate func(*Appointment) error) error {
	return db.WithTx(ctx, s.db, func(ctx context.Context) error {
		query := `SELECT id, doctor_id, user_id, slot_id, description, status, seq, created_at, updated_at
			FROM appointment WHERE id = $1`
		args := []any{id}
		if ownerID != nil {
			query += ` AND user_id = $2`
			args = append(args, *ownerID)
		}
		query += ` FOR UPDATE`

		var a Appointment
		err := s.conn(ctx).QueryRow(ctx, query, args...).Scan(
			&a.ID, &a.DoctorID, &a.UserID, &a.SlotID, &a.Description, &a.Status, &a.Seq, &a.CreatedAt, &a.UpdatedAt)
		if db.IsNoRows(err) {
			return ErrAppointmentNotFound
		}
		if err != nil {
			return fmt.Errorf("lock appointment: %w", err)
		}

		if err := mutate(&a); err != nil {
			return err
		}

		tag, err := s.conn(ctx).Exec(ctx,
			`UPDATE appointment SET description = $2, status = $3, updated_at = NOW() WHERE id = $1`,
			a.ID, a.Description, a.Status)
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		if tag.RowsAffected() != 1 {
			return ErrAppointmentNotFound
		}
		return nil
	})
}

func (s *storePG) DeleteAppointmentAndReleaseSlot(ctx context.Context, id, ownerID uuid.UUID) (uuid.UUID, error) {
	var slotID uuid.UUID
	err := db.WithTx(ctx, s.db, func(ctx context.Context) error {
		err := s.conn(ctx).QueryRow(ctx,
			`DELETE FROM appointment WHERE id = $1 AND user_id = $2 RETURNING slot_id`,
			id, ownerID,
		).Scan(&slotID)
		if db.IsNoRows(err) {
			return ErrAppointmentNotFound
		}
		if err != nil {
			return fmt.Errorf("delete appointment: %w", err)
		}

		if _, err := s.conn(ctx).Exec(ctx,
			`UPDATE slot SET booked = false, updated_at = NOW() WHERE id = $1`, slotID); err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return slotID, nil
}
