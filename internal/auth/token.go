package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/safar/fruit-store/internal/apperr"
	"github.com/safar/fruit-store/internal/models"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

// Identity is the verified caller carried by a token.
type Identity struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
}

func (id Identity) IsZero() bool {
	return id.UserID == ""
}

type claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 identity tokens. Tokens cannot be revoked;
// a role change only takes effect once the caller gets a new token.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for issuing and expiry checks.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) Issue(userID string, role models.Role) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperr.New(apperr.Unauthenticated, "missing token")
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.Wrap(apperr.Unauthenticated, "token expired", err)
		}
		return Identity{}, apperr.Wrap(apperr.Unauthenticated, "invalid token", err)
	}

	if c.Subject == "" || !c.Role.Valid() {
		return Identity{}, apperr.New(apperr.Unauthenticated, "invalid token claims")
	}

	return Identity{UserID: c.Subject, Role: c.Role}, nil
}
