package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medibook/medibook/internal/platform/auth"
)

// Metrics receives one outcome per register, login or refresh call.
type Metrics interface {
	AuthOutcome(operation, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) AuthOutcome(string, string) {}

type Service struct {
	users   UserRepository
	hasher  *auth.PasswordHasher
	tokens  *auth.TokenIssuer
	logger  zerolog.Logger
	metrics Metrics
}

func NewService(users UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer, logger zerolog.Logger, metrics Metrics) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		logger:  logger.With().Str("component", "identity").Logger(),
		metrics: metrics,
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUserExists):
		return "user_exists"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrAuthFailed):
		return "auth_failed"
	case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType):
		return "invalid_token"
	}
	return "error"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a USER account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (u *User, err error) {
	defer func() { s.metrics.AuthOutcome("register", outcome(err)) }()
	return s.create(ctx, in, auth.RoleUser)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role auth.Role) (*User, error) {
	hash, err := s.hasher.Hash(strings.TrimSpace(in.Password))
	if err != nil {
		return nil, err
	}

	u := &User{PasswordHash: hash}
	u.Username = strings.TrimSpace(in.Username)
	u.Email = normalizeEmail(in.Email)
	u.Phone = strings.TrimSpace(in.Phone)
	u.Role = string(role)

	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user registered")
	return u, nil
}

// Login checks the credentials and issues an access/refresh token pair.
func (s *Service) Login(ctx context.Context, in LoginInput) (u *User, pair *auth.TokenPair, err error) {
	defer func() { s.metrics.AuthOutcome("login", outcome(err)) }()

	u, err = s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		return nil, nil, err
	}

	ok, err := s.hasher.Compare(u.PasswordHash, strings.TrimSpace(in.Password))
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		s.logger.Warn().Str("user_id", u.ID.String()).Msg("password mismatch")
		return nil, nil, ErrAuthFailed
	}

	pair, err = s.tokens.IssuePair(u.ID, auth.Role(u.Role))
	if err != nil {
		return nil, nil, err
	}
	return u, pair, nil
}

// Refresh issues a new access token for a valid refresh token.
func (s *Service) Refresh(_ context.Context, refreshToken string) (access string, err error) {
	defer func() { s.metrics.AuthOutcome("refresh", outcome(err)) }()

	id, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	return s.tokens.IssueAccess(id.UserID, id.Role)
}

// EnsureUser creates an account with the given role unless one with the
// same email exists, in which case that account is returned unchanged.
// This is the only way to create an ADMIN.
func (s *Service) EnsureUser(ctx context.Context, in RegisterInput, role auth.Role) (*User, bool, error) {
	if !role.Valid() {
		return nil, false, fmt.Errorf("ensure user: invalid role %q", role)
	}
	email := normalizeEmail(in.Email)
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}
	u, err = s.create(ctx, in, role)
	if errors.Is(err, ErrUserExists) {
		u, err = s.users.GetByEmail(ctx, email)
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
