package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
)

func Connect(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:      newGormLogger(log, cfg.SlowQueryThreshold),
		PrepareStmt: true,
		// Unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	schemas := []string{"clinical", "auth", "audit"}
	for _, schema := range schemas {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	models := []any{
		&domain.Account{},
		&domain.AuditLog{},
		&practitioner.Practitioner{},
		&consultation.Consultation{},
		&appointment.Appointment{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		name  string
		query string
	}{
		// Doctor dashboard: open work per specialty, newest first
		{
			name:  "idx_appointments_specialty_status",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_specialty_status ON clinical.appointments (type_of_doctor, status, created_at DESC)`,
		},
		{
			name:  "idx_appointments_worker_created",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_worker_created ON clinical.appointments (asha_worker_id, created_at DESC) WHERE asha_worker_id IS NOT NULL`,
		},
		// First community worker lookup on every consultation request
		{
			name:  "idx_accounts_role_created",
			query: `CREATE INDEX IF NOT EXISTS idx_accounts_role_created ON auth.accounts (role, created_at, id)`,
		},
		{
			name:  "idx_practitioners_specialty_created",
			query: `CREATE INDEX IF NOT EXISTS idx_practitioners_specialty_created ON clinical.practitioners (specialty, created_at, id)`,
		},
		// Prescription implies Prescribed
		{
			name:  "chk_appointments_prescription_status",
			query: `DO $$ BEGIN ALTER TABLE clinical.appointments ADD CONSTRAINT chk_appointments_prescription_status CHECK (prescription_file IS NULL OR status = 'Prescribed'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("%s: %w", idx.name, err)
		}
		log.Debug("index ensured", zap.String("name", idx.name))
	}

	return nil
}
