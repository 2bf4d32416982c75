package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
)

func testManager() *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-that-is-long-enough-for-hs256",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "carelink-test",
	})
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := testManager()
	in := &domain.Claims{AccountID: uuid.New(), Username: "asha1", Role: domain.RoleCommunityWorker}

	pair, err := m.GenerateTokenPair(in)
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("token type = %q", pair.TokenType)
	}

	got, err := m.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if *got != *in {
		t.Errorf("claims = %+v, want %+v", got, in)
	}

	if _, err := m.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Errorf("ValidateRefreshToken: %v", err)
	}
}

func TestJWTManager_TypeMismatch(t *testing.T) {
	m := testManager()
	pair, _ := m.GenerateTokenPair(&domain.Claims{AccountID: uuid.New(), Role: domain.RolePatient})

	if _, err := m.ValidateAccessToken(pair.RefreshToken); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Errorf("expected ErrTokenTypeMismatch, got %v", err)
	}
}

func TestJWTManager_Expired(t *testing.T) {
	m := testManager()
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }
	pair, _ := m.GenerateTokenPair(&domain.Claims{AccountID: uuid.New(), Role: domain.RoleDoctor})

	m.now = time.Now
	if _, err := m.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	pair, _ := testManager().GenerateTokenPair(&domain.Claims{AccountID: uuid.New(), Role: domain.RoleAdmin})

	other := NewJWTManager(config.JWTConfig{Secret: "another-secret", Issuer: "carelink-test"})
	if _, err := other.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}
