package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/database"
)

type PractitionerRepository struct {
	db *gorm.DB
}

func NewPractitionerRepository(db *gorm.DB) *PractitionerRepository {
	return &PractitionerRepository{db: db}
}

func (r *PractitionerRepository) Create(ctx context.Context, p *practitioner.Practitioner) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return database.Conn(ctx, r.db).Create(p).Error
}

func (r *PractitionerRepository) FirstBySpecialty(ctx context.Context, specialty string) (*practitioner.Practitioner, error) {
	return r.first(ctx, "specialty = ?", specialty)
}

func (r *PractitionerRepository) GetByName(ctx context.Context, name string) (*practitioner.Practitioner, error) {
	return r.first(ctx, "name = ?", name)
}

func (r *PractitionerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*practitioner.Practitioner, error) {
	return r.first(ctx, "account_id = ?", accountID)
}

func (r *PractitionerRepository) List(ctx context.Context, specialty string) ([]*practitioner.Practitioner, error) {
	q := database.Conn(ctx, r.db).Model(&practitioner.Practitioner{})
	if specialty != "" {
		q = q.Where("specialty = ?", specialty)
	}
	var out []*practitioner.Practitioner
	err := q.Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

func (r *PractitionerRepository) first(ctx context.Context, query string, arg any) (*practitioner.Practitioner, error) {
	var p practitioner.Practitioner
	err := database.Conn(ctx, r.db).
		Where(query, arg).
		Order("created_at ASC, id ASC").
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, practitioner.ErrPractitionerNotFound
	}
	return &p, err
}
