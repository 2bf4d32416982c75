package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
)

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	f.patient(t, "ravi")

	cmd := register("ravi")
	cmd.Email = "other@example.com"
	_, err := f.auth.RegisterPatient(context.Background(), cmd)
	if !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		cmd  RegisterCommand
	}{
		{"missing username", RegisterCommand{Email: "a@example.com", Password: testPassword}},
		{"bad email", RegisterCommand{Username: "a", Email: "not-an-email", Password: testPassword}},
		{"short password", RegisterCommand{Username: "a", Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.RegisterPatient(context.Background(), tt.cmd)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
		})
	}
}

func TestRegisterDoctor_CreatesDirectoryEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.doctor(t, "drmehta", "Cardiologist")

	p, err := f.store.Practitioners().GetByAccountID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("directory entry missing: %v", err)
	}
	if p.Name != "drmehta" || p.Specialty != "Cardiologist" {
		t.Errorf("unexpected entry %+v", p)
	}

	if _, err := f.auth.RegisterDoctor(ctx, register("drnone")); err == nil {
		t.Error("expected specialty to be required")
	}
}

func TestRegisterDoctor_DuplicateLeavesNoDirectoryEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.doctor(t, "drmehta", "Cardiologist")

	cmd := register("drmehta")
	cmd.Email = "second@example.com"
	cmd.Specialty = "Neurologist"
	if _, err := f.auth.RegisterDoctor(ctx, cmd); !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	list, _ := f.store.Practitioners().List(ctx, "")
	if len(list) != 1 {
		t.Errorf("practitioners = %d, want 1", len(list))
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.worker(t, "asha1")

	pair, a, err := f.auth.Login(ctx, LoginCommand{Username: "asha1", Password: testPassword}, "10.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := f.jwt.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.AccountID != a.ID || claims.Role != domain.RoleCommunityWorker {
		t.Errorf("unexpected claims %+v", claims)
	}

	refreshed, err := f.auth.RefreshToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("empty access token after refresh")
	}
}

func TestLogin_Rejections(t *testing.T) {
	f := newFixture(t)
	f.worker(t, "asha1")

	tests := []struct {
		name string
		cmd  LoginCommand
	}{
		{"unknown user", LoginCommand{Username: "nobody", Password: testPassword}},
		{"wrong password", LoginCommand{Username: "asha1", Password: "wrong-password"}},
		{"wrong role", LoginCommand{Username: "asha1", Password: testPassword, Role: domain.RoleDoctor}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.auth.Login(context.Background(), tt.cmd, "10.0.0.1")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.worker(t, "asha1")

	for range 5 {
		_, _, _ = f.auth.Login(ctx, LoginCommand{Username: "asha1", Password: "wrong-password"}, "10.0.0.1")
	}

	_, _, err := f.auth.Login(ctx, LoginCommand{Username: "asha1", Password: testPassword}, "10.0.0.1")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.worker(t, "asha1")

	if err := f.auth.ChangePassword(ctx, a.ID, "wrong-password", "new-password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := f.auth.ChangePassword(ctx, a.ID, testPassword, "new-password-1"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if _, _, err := f.auth.Login(ctx, LoginCommand{Username: "asha1", Password: "new-password-1"}, ""); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
