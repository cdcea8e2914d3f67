package auth

import (
	"github.com/safar/fruit-store/internal/apperr"
	"github.com/safar/fruit-store/internal/models"
)

type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// Guard runs the authentication check that precedes every protected operation.
type Guard struct {
	verifier TokenVerifier
}

func NewGuard(verifier TokenVerifier) *Guard {
	return &Guard{verifier: verifier}
}

func (g *Guard) RequireAuth(token string) (Identity, error) {
	id, err := g.verifier.Verify(token)
	if err != nil {
		if apperr.KindOf(err) == apperr.Unauthenticated {
			return Identity{}, err
		}
		return Identity{}, apperr.Wrap(apperr.Unauthenticated, "invalid token", err)
	}
	return id, nil
}

// RequireIdentity fails for callers that never passed RequireAuth.
func RequireIdentity(id Identity) error {
	if id.IsZero() {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	return nil
}

func RequireRole(id Identity, role models.Role) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if id.Role != role {
		return apperr.New(apperr.Forbidden, "access denied: "+string(role)+" only")
	}
	return nil
}

func RequireOwnerOrAdmin(id Identity, ownerID string) error {
	if err := RequireIdentity(id); err != nil {
		return err
	}
	if id.Role == models.RoleAdmin || id.UserID == ownerID {
		return nil
	}
	return apperr.New(apperr.Forbidden, "not authorized")
}
