package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/database"
)

type ConsultationRepository struct {
	db *gorm.DB
}

func NewConsultationRepository(db *gorm.DB) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

func (r *ConsultationRepository) Create(ctx context.Context, c *consultation.Consultation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return database.Conn(ctx, r.db).Create(c).Error
}

func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	var c consultation.Consultation
	err := database.Conn(ctx, r.db).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, consultation.ErrConsultationNotFound
	}
	return &c, err
}

// MarkJoined is a single UPDATE ... RETURNING so concurrent joins of both
// sides never overwrite each other's flag.
func (r *ConsultationRepository) MarkJoined(ctx context.Context, id uuid.UUID, p consultation.Participant) (*consultation.Consultation, error) {
	var c consultation.Consultation
	res := database.Conn(ctx, r.db).
		Model(&c).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update(consultation.JoinedColumn(p), true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, consultation.ErrConsultationNotFound
	}
	return &c, nil
}
