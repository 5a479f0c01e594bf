package auth

import (
	"errors"
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("tatasteel1907")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword("tatasteel1907", hash) {
		t.Fatalf("correct password rejected")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatalf("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	token, err := m.IssueToken(42, "tatasteel", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.TeamID != 42 || claims.Username != "tatasteel" || claims.IsAdmin {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	m, _ := NewManager("secret-a", time.Hour)
	other, _ := NewManager("secret-b", time.Hour)

	token, err := m.IssueToken(1, "x", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret err = %v", err)
	}

	issued := time.Now()
	m.now = func() time.Time { return issued }
	token, err = m.IssueToken(1, "x", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := m.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token err = %v", err)
	}
}

func TestManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("", time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("err = %v, want ErrNoSecret", err)
	}
}
