package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secreta123", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Secreta123" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("unexpected hash %q", hash)
	}
	if !CheckPassword(hash, "Secreta123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "secreta123") {
		t.Error("wrong password accepted")
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	for _, pw := range []string{"", "1234567", strings.Repeat("a", 73)} {
		if _, err := HashPassword(pw, bcrypt.MinCost); !errors.Is(err, ErrWeakPassword) {
			t.Errorf("HashPassword(len=%d) err=%v want ErrWeakPassword", len(pw), err)
		}
	}
}

func TestTokenRoundTrip(t *testing.T) {
	iss := NewTokenIssuer("secret", "aceitubank", time.Hour)
	tok, err := iss.Issue(42, "sess-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != 42 || claims.ID != "sess-1" || claims.Issuer != "aceitubank" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestTokenRejected(t *testing.T) {
	iss := NewTokenIssuer("secret", "aceitubank", time.Hour)

	expired, _ := iss.Issue(1, "s", time.Now().Add(-time.Minute))
	if _, err := iss.Parse(expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token err=%v", err)
	}

	other := NewTokenIssuer("other-secret", "aceitubank", time.Hour)
	forged, _ := other.Issue(1, "s", time.Now().Add(time.Hour))
	if _, err := iss.Parse(forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("forged token err=%v", err)
	}

	wrongIss := NewTokenIssuer("secret", "someone-else", time.Hour)
	tok, _ := wrongIss.Issue(1, "s", time.Now().Add(time.Hour))
	if _, err := iss.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong issuer err=%v", err)
	}

	if _, err := iss.Parse("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token err=%v", err)
	}
}
