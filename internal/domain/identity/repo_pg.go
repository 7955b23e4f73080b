package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medibook/medibook/internal/platform/db"
)

type userRepoPG struct {
	db db.Querier
}

func NewUserRepoPG(q db.Querier) UserRepository {
	return &userRepoPG{db: q}
}

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.db)
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO users (id, username, email, password, phone, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Phone, u.Role,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if db.IsUniqueViolation(err, "users_email_key") {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, username, email, password, phone, role, created_at, updated_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}
