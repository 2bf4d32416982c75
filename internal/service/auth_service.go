package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
)

const minPasswordLength = 8

type AccountRepository interface {
	// Create returns domain.ErrAccountExists when the username or email is taken.
	Create(ctx context.Context, a *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)

	// FirstByRole returns the earliest registered account with the role.
	FirstByRole(ctx context.Context, role domain.Role) (*domain.Account, error)
	List(ctx context.Context, role *domain.Role) ([]*domain.Account, error)

	UpdateProfile(ctx context.Context, id uuid.UUID, upd *domain.ProfileUpdate) (*domain.Account, error)
	UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error

	// Delete removes the account together with the appointments it owns and
	// clears it as the assigned worker on any others.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Transactor runs fn so that every repository call made with the ctx it
// receives commits or rolls back together.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type RegisterCommand struct {
	Username string
	Email    string
	Password string
	Phone    string

	// Doctor only
	Specialty string
	// Community worker only
	AreaOfOperation string
	WorkerID        string
}

type LoginCommand struct {
	Username string
	Password string
	// If set, the account must have this role.
	Role domain.Role
}

type AuthService struct {
	accounts      AccountRepository
	practitioners practitioner.Repository
	tx            Transactor
	jwtManager    *auth.JWTManager
	audit         *AuditService
	log           *zap.Logger
}

func NewAuthService(
	accounts AccountRepository,
	practitioners practitioner.Repository,
	tx Transactor,
	jwtManager *auth.JWTManager,
	audit *AuditService,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		accounts:      accounts,
		practitioners: practitioners,
		tx:            tx,
		jwtManager:    jwtManager,
		audit:         audit,
		log:           log.Named("auth"),
	}
}

func (s *AuthService) RegisterPatient(ctx context.Context, cmd RegisterCommand) (*domain.Account, error) {
	a, err := s.newAccount(cmd, domain.RolePatient)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("creating patient: %w", err)
	}
	s.log.Info("patient registered", zap.String("account_id", a.ID.String()))
	return a, nil
}

// RegisterDoctor creates the login account and its directory entry together.
// The directory name is the username, which is also the name consultations
// are addressed to.
func (s *AuthService) RegisterDoctor(ctx context.Context, cmd RegisterCommand) (*domain.Account, error) {
	cmd.Specialty = strings.TrimSpace(cmd.Specialty)
	if cmd.Specialty == "" {
		return nil, &ValidationError{Fields: []string{"specialty is required"}}
	}

	a, err := s.newAccount(cmd, domain.RoleDoctor)
	if err != nil {
		return nil, err
	}
	a.Specialty = cmd.Specialty

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, a); err != nil {
			return err
		}
		return s.practitioners.Create(ctx, &practitioner.Practitioner{
			AccountID:   &a.ID,
			Name:        a.Username,
			Specialty:   a.Specialty,
			PhoneNumber: a.Phone,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("creating doctor: %w", err)
	}

	s.log.Info("doctor registered",
		zap.String("account_id", a.ID.String()),
		zap.String("specialty", a.Specialty),
	)
	return a, nil
}

func (s *AuthService) RegisterCommunityWorker(ctx context.Context, cmd RegisterCommand) (*domain.Account, error) {
	a, err := s.newAccount(cmd, domain.RoleCommunityWorker)
	if err != nil {
		return nil, err
	}
	a.AreaOfOperation = strings.TrimSpace(cmd.AreaOfOperation)
	a.WorkerID = strings.TrimSpace(cmd.WorkerID)

	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("creating community worker: %w", err)
	}
	s.log.Info("community worker registered", zap.String("account_id", a.ID.String()))
	return a, nil
}

func (s *AuthService) newAccount(cmd RegisterCommand, role domain.Role) (*domain.Account, error) {
	cmd.Username = strings.TrimSpace(cmd.Username)
	cmd.Email = strings.TrimSpace(strings.ToLower(cmd.Email))

	v := &validator{}
	v.require(cmd.Username != "", "username is required")
	v.require(len(cmd.Username) <= 80, "username must be at most 80 characters")
	_, mailErr := mail.ParseAddress(cmd.Email)
	v.require(cmd.Email != "" && mailErr == nil, "a valid email is required")
	v.require(len(cmd.Password) >= minPasswordLength, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	if err := v.err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	return &domain.Account{
		Username:     cmd.Username,
		Email:        cmd.Email,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        strings.TrimSpace(cmd.Phone),
	}, nil
}

func (s *AuthService) Login(ctx context.Context, cmd LoginCommand, ip string) (*domain.TokenPair, *domain.Account, error) {
	a, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(cmd.Username))
	if err != nil {
		// Dummy hash keeps the timing the same whether or not the user exists.
		_, _ = bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
		return nil, nil, ErrInvalidCredentials
	}

	if a.IsLocked() {
		return nil, nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(cmd.Password)); err != nil {
		_ = s.accounts.UpdateLoginAttempt(ctx, a.ID, false)
		s.log.Warn("failed login attempt",
			zap.String("username", a.Username),
			zap.String("ip", ip),
		)
		return nil, nil, ErrInvalidCredentials
	}

	if cmd.Role != "" && cmd.Role != a.Role {
		return nil, nil, ErrInvalidCredentials
	}

	_ = s.accounts.UpdateLoginAttempt(ctx, a.ID, true)

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(a))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.audit.LogAsync(ctx, AuditEntry{
		AccountID:    a.ID,
		Role:         a.Role,
		Action:       domain.ActionLogin,
		ResourceType: "account",
		ResourceID:   a.ID.String(),
		IPAddress:    ip,
	})
	s.log.Info("user logged in",
		zap.String("account_id", a.ID.String()),
		zap.String("role", string(a.Role)),
		zap.String("ip", ip),
	)

	return pair, a, nil
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// The account may have been deleted or locked since the token was issued.
	a, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil || a.IsLocked() {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(a))
}

// ChangePassword updates a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string) error {
	a, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if len(newPassword) < minPasswordLength {
		return &ValidationError{Fields: []string{fmt.Sprintf("password must be at least %d characters", minPasswordLength)}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.accounts.UpdatePassword(ctx, accountID, string(hash))
}

func claimsFor(a *domain.Account) *domain.Claims {
	return &domain.Claims{
		AccountID: a.ID,
		Username:  a.Username,
		Role:      a.Role,
	}
}
