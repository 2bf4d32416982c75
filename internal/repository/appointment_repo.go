package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/database"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return database.Conn(ctx, r.db).Create(a).Error
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	err := database.Conn(ctx, r.db).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, err
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	db := database.Conn(ctx, r.db).Model(&appointment.Appointment{})

	if q.UserID != nil {
		db = db.Where("user_id = ?", *q.UserID)
	}
	if q.AshaWorkerID != nil {
		db = db.Where("asha_worker_id = ?", *q.AshaWorkerID)
	}
	if q.TypeOfDoctor != nil {
		db = db.Where("type_of_doctor = ?", *q.TypeOfDoctor)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}
	// Count and Find each start from the filtered statement.
	db = db.Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting appointments: %w", err)
	}

	var items []*appointment.Appointment
	offset := (q.Page - 1) * q.PageSize
	if err := db.Order("created_at DESC, id DESC").Offset(offset).Limit(q.PageSize).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing appointments: %w", err)
	}

	return paged(items, total, q.Page, q.PageSize), nil
}

// Approve only touches rows still in an approvable status. A miss is told
// apart as not-found or invalid transition by re-reading the row.
func (r *AppointmentRepository) Approve(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	res := database.Conn(ctx, r.db).
		Model(&a).
		Clauses(clause.Returning{}).
		Where("id = ? AND status IN ?", id, appointment.ApprovableFrom()).
		Update("status", appointment.StatusApproved)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, appointment.ErrInvalidStatusTransition
	}
	return &a, nil
}

func (r *AppointmentRepository) AttachPrescription(ctx context.Context, id uuid.UUID, ref string) (*appointment.Appointment, error) {
	var a appointment.Appointment
	res := database.Conn(ctx, r.db).
		Model(&a).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"prescription_file": ref,
			"status":            appointment.StatusPrescribed,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := database.Conn(ctx, r.db).Delete(&appointment.Appointment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appointment.ErrAppointmentNotFound
	}
	return nil
}

func paged(items []*appointment.Appointment, total int64, page, pageSize int) *appointment.PagedAppointments {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &appointment.PagedAppointments{
		Appointments: items,
		TotalCount:   total,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
	}
}
