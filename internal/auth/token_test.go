package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/safar/fruit-store/internal/apperr"
	"github.com/safar/fruit-store/internal/models"
)

func TestIssueVerify(t *testing.T) {
	issuer := NewIssuer("secret", DefaultTokenTTL)

	token, err := issuer.Issue("user-1", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != "user-1" || id.Role != models.RoleAdmin {
		t.Errorf("Unexpected identity %+v", id)
	}
}

func TestVerifyRejects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	issuer := NewIssuer("secret", DefaultTokenTTL).WithClock(func() time.Time { return clock })

	valid, err := issuer.Issue("user-1", models.RoleCustomer)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, err := NewIssuer("other-secret", DefaultTokenTTL).Issue("user-1", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(valid, ".")
	tamperedPayload := parts[0] + "." + parts[1] + "x." + parts[2]
	tamperedSig := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	tests := []struct {
		name  string
		token string
		at    time.Time
	}{
		{"empty", "", now},
		{"malformed", "not-a-token", now},
		{"tampered payload", tamperedPayload, now},
		{"tampered signature", tamperedSig, now},
		{"wrong secret", other, now},
		{"expired", valid, now.Add(DefaultTokenTTL + time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock = tt.at
			_, err := issuer.Verify(tt.token)
			if !apperr.Is(err, apperr.Unauthenticated) {
				t.Errorf("Expected Unauthenticated, got %v", err)
			}
		})
	}

	clock = now.Add(DefaultTokenTTL - time.Minute)
	if _, err := issuer.Verify(valid); err != nil {
		t.Errorf("Token should still be valid just before expiry: %v", err)
	}
}

func TestGuardOwnership(t *testing.T) {
	const owner = "owner-1"

	tests := []struct {
		name    string
		id      Identity
		allowed bool
	}{
		{"admin owner", Identity{UserID: owner, Role: models.RoleAdmin}, true},
		{"admin non-owner", Identity{UserID: "someone", Role: models.RoleAdmin}, true},
		{"customer owner", Identity{UserID: owner, Role: models.RoleCustomer}, true},
		{"customer non-owner", Identity{UserID: "someone", Role: models.RoleCustomer}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireOwnerOrAdmin(tt.id, owner)
			if tt.allowed && err != nil {
				t.Errorf("Expected access, got %v", err)
			}
			if !tt.allowed && !apperr.Is(err, apperr.Forbidden) {
				t.Errorf("Expected Forbidden, got %v", err)
			}
		})
	}

	if err := RequireOwnerOrAdmin(Identity{}, ""); !apperr.Is(err, apperr.Unauthenticated) {
		t.Errorf("Zero identity should be Unauthenticated, got %v", err)
	}
}

func TestGuardRole(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	guard := NewGuard(issuer)

	token, _ := issuer.Issue("user-1", models.RoleCustomer)
	id, err := guard.RequireAuth(token)
	if err != nil {
		t.Fatalf("RequireAuth: %v", err)
	}

	if err := RequireRole(id, models.RoleAdmin); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("Customer should be Forbidden from admin operations, got %v", err)
	}
	if err := RequireRole(id, models.RoleCustomer); err != nil {
		t.Errorf("Role should match: %v", err)
	}

	if _, err := guard.RequireAuth("garbage"); !apperr.Is(err, apperr.Unauthenticated) {
		t.Errorf("Expected Unauthenticated, got %v", err)
	}
}
