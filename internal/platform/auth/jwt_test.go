package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSessionIssueAndValidate(t *testing.T) {
	issuer := NewSessionIssuer("test-secret", time.Hour)
	userID := uuid.New()

	token, err := issuer.Issue(userID, "pharmacist", "main")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("expected subject %s, got %s", userID, claims.Subject)
	}
	if claims.Role != "pharmacist" {
		t.Errorf("expected role pharmacist, got %s", claims.Role)
	}
	if claims.Branch != "main" {
		t.Errorf("expected branch main, got %s", claims.Branch)
	}
}

func TestSessionValidate_WrongSecret(t *testing.T) {
	token, err := NewSessionIssuer("secret-a", time.Hour).Issue(uuid.New(), "admin", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = NewSessionIssuer("secret-b", time.Hour).Validate(token)
	if !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expected ErrInvalidSession, got %v", err)
	}
}

func TestSessionValidate_Expired(t *testing.T) {
	token, err := NewSessionIssuer("test-secret", -time.Minute).Issue(uuid.New(), "admin", "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = NewSessionIssuer("test-secret", -time.Minute).Validate(token)
	if !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expected ErrInvalidSession for expired token, got %v", err)
	}
}

func TestSessionValidate_Garbage(t *testing.T) {
	issuer := NewSessionIssuer("test-secret", time.Hour)
	if _, err := issuer.Validate("not-a-jwt"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expected ErrInvalidSession, got %v", err)
	}
}
