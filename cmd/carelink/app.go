package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/prescription"
	v1 "github.com/dmehra2102/prod-golang-projects/carelink/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/repository"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/roomlink"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/service"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/events"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/filestore"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/realtime"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/sms"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/tracer"
)

// stores is the persistence a running server needs, backed by either
// PostgreSQL or memory.
type stores struct {
	accounts      service.AccountRepository
	practitioners practitioner.Repository
	consultations consultation.Repository
	appointments  appointment.Repository
	audit         service.AuditRepository
	tx            service.Transactor
	files         prescription.Store
}

type app struct {
	router  *gin.Engine
	gateway *notify.Gateway
	audit   *service.AuditService
	sink    *events.KafkaSink
	tp      *sdktrace.TracerProvider
	log     *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, inMemory bool) (*app, error) {
	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return nil, fmt.Errorf("initialising tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector("carelink", reg)

	st, err := openStores(ctx, cfg, log, inMemory)
	if err != nil {
		return nil, err
	}

	rooms := roomlink.NewIssuer(cfg.Video.Host)
	feed := notify.NewFeed(cfg.Notifications.FeedCapacity)
	hub := realtime.NewHub(cfg.Notifications.ClientBufferSize, cfg.CORS.AllowedOrigins, log)

	publishers := []notify.Publisher{hub, feed}
	var sink *events.KafkaSink
	if cfg.Kafka.Enabled {
		sink = events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.QueueSize, cfg.Kafka.WriteTimeout, m, log)
		publishers = append(publishers, sink)
	}

	var sender notify.SMSSender = sms.NewLogSender(log)
	if cfg.SMS.Enabled {
		sender = sms.NewTwilioSender(cfg.SMS, log)
	}
	gateway := notify.NewGateway(sender, m, log, publishers...)

	jwtManager := auth.NewJWTManager(cfg.JWT)
	audit := service.NewAuditService(st.audit, m, log)
	directory := service.NewDirectoryService(st.practitioners, rooms, log)

	if inMemory {
		if _, err := directory.Seed(ctx, service.DefaultDirectory); err != nil {
			return nil, fmt.Errorf("seeding directory: %w", err)
		}
	}

	router := v1.NewRouter(v1.RouterDeps{
		Config:   cfg,
		Auth:     service.NewAuthService(st.accounts, st.practitioners, st.tx, jwtManager, audit, log),
		Accounts: service.NewAccountService(st.accounts, audit, log),
		Coordination: service.NewCoordinationService(service.CoordinationDeps{
			Accounts:      st.accounts,
			Practitioners: st.practitioners,
			Consultations: st.consultations,
			Appointments:  st.appointments,
			Tx:            st.tx,
			Files:         st.files,
			Notifier:      gateway,
			Rooms:         rooms,
			Audit:         audit,
			Metrics:       m,
			Log:           log,
			FallbackName:  cfg.Triage.FallbackPractitionerName,
			FallbackPhone: cfg.Triage.FallbackPractitionerPhone,
		}),
		Directory: directory,
		Alerts:    service.NewAlertService(feed, gateway, log),
		JWT:       jwtManager,
		Hub:       hub,
		Metrics:   m,
		Log:       log,
	})

	return &app{router: router, gateway: gateway, audit: audit, sink: sink, tp: tp, log: log}, nil
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger, inMemory bool) (*stores, error) {
	if inMemory {
		mem := memory.NewStore()
		return &stores{
			accounts:      mem.Accounts(),
			practitioners: mem.Practitioners(),
			consultations: mem.Consultations(),
			appointments:  mem.Appointments(),
			audit:         mem.Audit(),
			tx:            mem,
			files:         filestore.NewMemoryStore(cfg.Storage.MaxUploadBytes),
		}, nil
	}

	db, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	files, err := filestore.NewLocalStore(cfg.Storage.PrescriptionDir, cfg.Storage.MaxUploadBytes, log)
	if err != nil {
		return nil, fmt.Errorf("opening prescription store: %w", err)
	}

	return &stores{
		accounts:      repository.NewAccountRepository(db),
		practitioners: repository.NewPractitionerRepository(db),
		consultations: repository.NewConsultationRepository(db),
		appointments:  repository.NewAppointmentRepository(db),
		audit:         repository.NewAuditRepository(db),
		tx:            database.NewTransactor(db),
		files:         files,
	}, nil
}

// shutdown drains the background writers in dependency order.
func (a *app) shutdown(ctx context.Context) {
	a.gateway.Shutdown(ctx)
	if a.sink != nil {
		if err := a.sink.Shutdown(ctx); err != nil {
			a.log.Error("event sink shutdown", zap.Error(err))
		}
	}
	a.audit.Shutdown(ctx)
	if err := a.tp.Shutdown(ctx); err != nil {
		a.log.Error("tracer shutdown", zap.Error(err))
	}
}
