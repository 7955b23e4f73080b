package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

type Claims struct {
	jwt.RegisteredClaims
	Role Role   `json:"role"`
	Type string `json:"typ"`
}

// TokenIssuer signs and verifies HS256 access and refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func (ti *TokenIssuer) IssuePair(userID uuid.UUID, role Role) (*TokenPair, error) {
	access, err := ti.IssueAccess(userID, role)
	if err != nil {
		return nil, err
	}
	refresh, err := ti.sign(userID, role, TokenTypeRefresh, ti.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (ti *TokenIssuer) IssueAccess(userID uuid.UUID, role Role) (string, error) {
	return ti.sign(userID, role, TokenTypeAccess, ti.accessTTL)
}

func (ti *TokenIssuer) sign(userID uuid.UUID, role Role, typ string, ttl time.Duration) (string, error) {
	now := ti.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Role: role,
		Type: typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

// ParseAccess verifies an access token and returns the caller identity.
func (ti *TokenIssuer) ParseAccess(tokenStr string) (Identity, error) {
	return ti.parse(tokenStr, TokenTypeAccess)
}

// ParseRefresh verifies a refresh token and returns the caller identity.
func (ti *TokenIssuer) ParseRefresh(tokenStr string) (Identity, error) {
	return ti.parse(tokenStr, TokenTypeRefresh)
}

func (ti *TokenIssuer) parse(tokenStr, wantType string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject anything but HMAC so a public key can never be used as the secret.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithTimeFunc(ti.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Type != wantType {
		return Identity{}, ErrWrongTokenType
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return Identity{}, fmt.Errorf("%w: bad role", ErrInvalidToken)
	}
	return Identity{UserID: userID, Role: claims.Role}, nil
}
