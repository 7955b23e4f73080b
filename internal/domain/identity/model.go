package identity

import (
	"github.com/medibook/medibook/internal/domain/booking"
)

// User is an account row. PasswordHash never leaves this package in a
// response.
type User struct {
	booking.User
	PasswordHash string `json:"-"`
}

// RegisterInput is the public sign-up body. It carries no role: every
// self-registered account is a USER.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=4,max=10"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4,max=72"`
	Phone    string `json:"phone" validate:"required,e164"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

// UserInfo is the profile returned on login.
type UserInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
