package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/database"
)

const (
	maxFailedAttempts = 5
	lockDuration      = 15 * time.Minute
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := database.Conn(ctx, r.db).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAccountExists
	}
	return err
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	err := database.Conn(ctx, r.db).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	return &a, err
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var a domain.Account
	err := database.Conn(ctx, r.db).First(&a, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	return &a, err
}

func (r *AccountRepository) FirstByRole(ctx context.Context, role domain.Role) (*domain.Account, error) {
	var a domain.Account
	err := database.Conn(ctx, r.db).
		Where("role = ?", role).
		Order("created_at ASC, id ASC").
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	return &a, err
}

func (r *AccountRepository) List(ctx context.Context, role *domain.Role) ([]*domain.Account, error) {
	q := database.Conn(ctx, r.db).Model(&domain.Account{})
	if role != nil {
		q = q.Where("role = ?", *role)
	}
	var out []*domain.Account
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return out, nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id uuid.UUID, upd *domain.ProfileUpdate) (*domain.Account, error) {
	updates := map[string]any{}
	if upd.Phone != nil {
		updates["phone"] = *upd.Phone
	}
	if upd.Address != nil {
		updates["address"] = *upd.Address
	}
	if upd.Gender != nil {
		updates["gender"] = *upd.Gender
	}
	if upd.Age != nil {
		updates["age"] = *upd.Age
	}
	if upd.BloodGroup != nil {
		updates["blood_group"] = *upd.BloodGroup
	}
	if upd.DateOfBirth != nil {
		updates["date_of_birth"] = *upd.DateOfBirth
	}
	if upd.AreaOfOperation != nil {
		updates["area_of_operation"] = *upd.AreaOfOperation
	}
	if upd.WorkerID != nil {
		updates["worker_id"] = *upd.WorkerID
	}

	if len(updates) > 0 {
		res := database.Conn(ctx, r.db).Model(&domain.Account{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, domain.ErrAccountNotFound
		}
	}
	return r.GetByID(ctx, id)
}

// UpdateLoginAttempt resets the counter on success. On failure it increments
// and locks the account once the threshold is reached, in one statement.
func (r *AccountRepository) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	db := database.Conn(ctx, r.db).Model(&domain.Account{}).Where("id = ?", id)
	if success {
		return db.Updates(map[string]any{
			"failed_login_count": 0,
			"locked_until":       nil,
			"last_login_at":      time.Now().UTC(),
		}).Error
	}

	return db.Updates(map[string]any{
		"failed_login_count": gorm.Expr("failed_login_count + 1"),
		"locked_until": gorm.Expr(
			"CASE WHEN failed_login_count + 1 >= ? THEN ?::timestamptz ELSE locked_until END",
			maxFailedAttempts, time.Now().UTC().Add(lockDuration),
		),
	}).Error
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res := database.Conn(ctx, r.db).Model(&domain.Account{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Delete cascades in one transaction: owned appointments go, assignments are
// cleared and a linked directory entry is detached.
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.NewTransactor(r.db).WithinTransaction(ctx, func(ctx context.Context) error {
		tx := database.Conn(ctx, r.db)

		if err := tx.Where("user_id = ?", id).Delete(&appointment.Appointment{}).Error; err != nil {
			return fmt.Errorf("deleting owned appointments: %w", err)
		}
		if err := tx.Model(&appointment.Appointment{}).
			Where("asha_worker_id = ?", id).
			Update("asha_worker_id", nil).Error; err != nil {
			return fmt.Errorf("clearing assignments: %w", err)
		}
		if err := tx.Model(&practitioner.Practitioner{}).
			Where("account_id = ?", id).
			Update("account_id", nil).Error; err != nil {
			return fmt.Errorf("detaching practitioner: %w", err)
		}

		res := tx.Delete(&domain.Account{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrAccountNotFound
		}
		return nil
	})
}
