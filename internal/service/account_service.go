package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
)

var bloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

type AccountService struct {
	accounts AccountRepository
	audit    *AuditService
	log      *zap.Logger
}

func NewAccountService(accounts AccountRepository, audit *AuditService, log *zap.Logger) *AccountService {
	return &AccountService{accounts: accounts, audit: audit, log: log.Named("account")}
}

func (s *AccountService) GetProfile(ctx context.Context, caller Caller) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, caller.AccountID)
}

// UpdateProfile applies the fields the caller's role may change. Worker
// fields sent by anyone else are rejected rather than silently dropped.
func (s *AccountService) UpdateProfile(ctx context.Context, caller Caller, upd *domain.ProfileUpdate) (*domain.Account, error) {
	a, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}

	v := &validator{}
	if upd.Age != nil {
		v.require(*upd.Age > 0 && *upd.Age < 150, "age must be between 1 and 149")
	}
	if upd.BloodGroup != nil {
		bg := strings.ToUpper(strings.TrimSpace(*upd.BloodGroup))
		upd.BloodGroup = &bg
		v.require(bloodGroups[bg], "blood_group must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	}
	if a.Role != domain.RoleCommunityWorker {
		v.require(upd.AreaOfOperation == nil, "area_of_operation can only be set by community workers")
		v.require(upd.WorkerID == nil, "worker_id can only be set by community workers")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	updated, err := s.accounts.UpdateProfile(ctx, a.ID, upd)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.audit.LogAsync(ctx, caller.audit(domain.ActionUpdate, "account", a.ID.String()))
	return updated, nil
}

func (s *AccountService) ListAccounts(ctx context.Context, caller Caller, role *domain.Role) ([]*domain.Account, error) {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return nil, err
	}
	return s.accounts.List(ctx, role)
}

func (s *AccountService) DeleteAccount(ctx context.Context, caller Caller, id uuid.UUID) error {
	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	if id == caller.AccountID {
		return &ValidationError{Fields: []string{"admins cannot delete their own account"}}
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.LogAsync(ctx, caller.audit(domain.ActionDelete, "account", id.String()))
	s.log.Info("account deleted",
		zap.String("account_id", id.String()),
		zap.String("by", caller.AccountID.String()),
	)
	return nil
}

func (s *AccountService) requireAdmin(ctx context.Context, caller Caller) error {
	a, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil || a.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	return nil
}
