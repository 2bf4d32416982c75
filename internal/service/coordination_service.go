package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/triage"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/metrics"
)

var tracer = otel.Tracer("carelink/service")

// Notifier is the outbound side of the coordination core. Publish and
// QueueSMS never fail from the caller's point of view; SendSMS is for callers
// that must report the delivery result.
type Notifier interface {
	Publish(ctx context.Context, channel notify.Channel, event string, payload map[string]any)
	SendSMS(ctx context.Context, to, body string) (string, error)
	QueueSMS(ctx context.Context, to, body string, fields ...zap.Field)
}

// RoomIssuer produces a video room link for a practitioner.
type RoomIssuer interface {
	Issue(practitionerName string) string
}

type CoordinationDeps struct {
	Accounts      AccountRepository
	Practitioners practitioner.Repository
	Consultations consultation.Repository
	Appointments  appointment.Repository
	Tx            Transactor
	Files         prescription.Store
	Notifier      Notifier
	Rooms         RoomIssuer
	Audit         *AuditService
	Metrics       *metrics.Collector
	Log           *zap.Logger

	// Identity used when no practitioner of the recommended specialty exists.
	FallbackName  string
	FallbackPhone string
}

// CoordinationService drives consultations and appointments from symptom
// intake to prescription. Notifications go out only after the state change is
// committed.
type CoordinationService struct {
	accounts      AccountRepository
	practitioners practitioner.Repository
	consultations consultation.Repository
	appointments  appointment.Repository
	tx            Transactor
	files         prescription.Store
	notifier      Notifier
	rooms         RoomIssuer
	audit         *AuditService
	metrics       *metrics.Collector
	log           *zap.Logger

	fallbackName  string
	fallbackPhone string
}

func NewCoordinationService(d CoordinationDeps) *CoordinationService {
	return &CoordinationService{
		accounts:      d.Accounts,
		practitioners: d.Practitioners,
		consultations: d.Consultations,
		appointments:  d.Appointments,
		tx:            d.Tx,
		files:         d.Files,
		notifier:      d.Notifier,
		rooms:         d.Rooms,
		audit:         d.Audit,
		metrics:       d.Metrics,
		log:           d.Log.Named("coordination"),
		fallbackName:  d.FallbackName,
		fallbackPhone: d.FallbackPhone,
	}
}

type ConsultationResult struct {
	Disease        string    `json:"disease"`
	Confidence     float64   `json:"confidence"`
	Specialty      string    `json:"specialty"`
	Message        string    `json:"message"`
	RoomLink       string    `json:"room_link"`
	DoctorName     string    `json:"doctor_name"`
	ConsultationID uuid.UUID `json:"consultation_id"`
	AppointmentID  uuid.UUID `json:"appointment_id"`
	TriageVersion  string    `json:"triage_version"`
}

type JoinResult struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	RoomLink       string    `json:"video_link"`
	DoctorJoined   bool      `json:"doctor_joined"`
	PatientJoined  bool      `json:"patient_joined"`
}

// RequestConsultation triages the symptoms, picks a practitioner, opens a room
// and records the consultation with its appointment in one transaction.
func (s *CoordinationService) RequestConsultation(ctx context.Context, caller Caller, symptoms []string) (*ConsultationResult, error) {
	ctx, span := tracer.Start(ctx, "CoordinationService.RequestConsultation")
	defer span.End()

	patient, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil {
		return nil, spanErr(span, err)
	}
	if patient.Role != domain.RolePatient {
		return nil, spanErr(span, ErrForbidden)
	}
	if !patient.TriageReady() {
		return nil, spanErr(span, ErrProfileIncomplete)
	}

	advice := triage.Advise(symptoms)
	span.SetAttributes(
		attribute.String("triage.condition", advice.Condition),
		attribute.String("triage.match", string(advice.Match)),
	)

	doc, err := s.practitionerFor(ctx, advice.Specialty)
	if err != nil {
		return nil, spanErr(span, err)
	}

	worker, err := s.accounts.FirstByRole(ctx, domain.RoleCommunityWorker)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, spanErr(span, ErrServiceUnavailable)
	}
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("finding community worker: %w", err))
	}

	c := &consultation.Consultation{
		DoctorName:    doc.Name,
		PatientName:   patient.Username,
		VideoCallLink: s.rooms.Issue(doc.Name),
	}
	a := &appointment.Appointment{
		UserID:       patient.ID,
		AshaWorkerID: &worker.ID,
		Name:         patient.Username,
		TimeSlot:     appointment.TimeSlotImmediate,
		TypeOfDoctor: advice.Specialty,
		Status:       appointment.StatusPending,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.consultations.Create(ctx, c); err != nil {
			return fmt.Errorf("creating consultation: %w", err)
		}
		if err := s.appointments.Create(ctx, a); err != nil {
			return fmt.Errorf("creating appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to record consultation", zap.Error(err))
		return nil, spanErr(span, err)
	}

	s.notifier.Publish(ctx, notify.ChannelCommunityWorker, notify.EventAppointmentAssigned, map[string]any{
		"appointment_id": a.ID.String(),
		"patient_name":   patient.Username,
		"doctor_name":    doc.Name,
		"time_slot":      a.TimeSlot,
	})

	s.metrics.ConsultationRequested(string(advice.Match))
	s.metrics.AppointmentStatus(string(a.Status))
	s.audit.LogAsync(ctx, caller.audit(domain.ActionCreate, "consultation", c.ID.String()))

	s.log.Info("consultation requested",
		zap.String("consultation_id", c.ID.String()),
		zap.String("appointment_id", a.ID.String()),
		zap.String("specialty", advice.Specialty),
		zap.Bool("fallback_practitioner", doc.IsFallback()),
	)

	return &ConsultationResult{
		Disease:        advice.Condition,
		Confidence:     advice.Confidence,
		Specialty:      advice.Specialty,
		Message:        fmt.Sprintf("Based on your symptoms, you might have %s. Please consult %s.", advice.Condition, doc.Name),
		RoomLink:       c.VideoCallLink,
		DoctorName:     doc.Name,
		ConsultationID: c.ID,
		AppointmentID:  a.ID,
		TriageVersion:  triage.TableVersion,
	}, nil
}

func (s *CoordinationService) practitionerFor(ctx context.Context, specialty string) (*practitioner.Practitioner, error) {
	doc, err := s.practitioners.FirstBySpecialty(ctx, specialty)
	if errors.Is(err, practitioner.ErrPractitionerNotFound) {
		return practitioner.Fallback(s.fallbackName, s.fallbackPhone, specialty), nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding practitioner: %w", err)
	}
	return doc, nil
}

// JoinAsPatient marks the patient side of a consultation as joined and tells
// the doctor. Repeated joins notify again.
func (s *CoordinationService) JoinAsPatient(ctx context.Context, caller Caller, consultationID uuid.UUID) (*JoinResult, error) {
	ctx, span := tracer.Start(ctx, "CoordinationService.JoinAsPatient",
		trace.WithAttributes(attribute.String("consultation.id", consultationID.String())))
	defer span.End()

	if _, err := s.consultations.GetByID(ctx, consultationID); err != nil {
		return nil, spanErr(span, err)
	}

	a, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil || a.Role == domain.RoleDoctor {
		return nil, spanErr(span, ErrForbidden)
	}

	c, err := s.consultations.MarkJoined(ctx, consultationID, consultation.ParticipantPatient)
	if err != nil {
		return nil, spanErr(span, err)
	}

	s.notifier.Publish(ctx, notify.ChannelDoctor, notify.EventPatientJoined, map[string]any{
		"patient_name":    a.Username,
		"video_link":      c.VideoCallLink,
		"consultation_id": c.ID.String(),
	})

	if phone := s.phoneOf(ctx, c.DoctorName); phone != "" {
		body := fmt.Sprintf("Patient %s has joined the video call! Join here: %s", a.Username, c.VideoCallLink)
		s.notifier.QueueSMS(ctx, phone, body,
			zap.String("recipient", "doctor"),
			zap.String("consultation_id", c.ID.String()),
		)
	}

	s.metrics.Joined(string(consultation.ParticipantPatient))
	return joinResult(c), nil
}

// JoinAsDoctor is only open to the doctor the consultation is addressed to.
func (s *CoordinationService) JoinAsDoctor(ctx context.Context, caller Caller, consultationID uuid.UUID) (*JoinResult, error) {
	ctx, span := tracer.Start(ctx, "CoordinationService.JoinAsDoctor",
		trace.WithAttributes(attribute.String("consultation.id", consultationID.String())))
	defer span.End()

	a, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil || a.Role != domain.RoleDoctor {
		return nil, spanErr(span, ErrForbidden)
	}

	existing, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, spanErr(span, err)
	}

	doc, err := s.practitioners.GetByAccountID(ctx, a.ID)
	if err != nil || doc.Name != existing.DoctorName {
		return nil, spanErr(span, ErrForbidden)
	}

	c, err := s.consultations.MarkJoined(ctx, consultationID, consultation.ParticipantDoctor)
	if err != nil {
		return nil, spanErr(span, err)
	}

	s.notifier.Publish(ctx, notify.ChannelCommunityWorker, notify.EventDoctorJoined, map[string]any{
		"doctor_name":     doc.Name,
		"video_link":      c.VideoCallLink,
		"consultation_id": c.ID.String(),
	})

	s.metrics.Joined(string(consultation.ParticipantDoctor))
	return joinResult(c), nil
}

func (s *CoordinationService) ConsultationStatus(ctx context.Context, consultationID uuid.UUID) (*consultation.Status, error) {
	c, err := s.consultations.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	return &consultation.Status{
		ConsultationID: c.ID,
		DoctorJoined:   c.DoctorJoined,
		PatientJoined:  c.PatientJoined,
		Active:         c.IsActive(),
	}, nil
}

// BookAppointment creates a Pending appointment outside the symptom checker.
func (s *CoordinationService) BookAppointment(ctx context.Context, caller Caller, cmd appointment.BookAppointmentCommand) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "CoordinationService.BookAppointment")
	defer span.End()

	patient, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil || patient.Role != domain.RolePatient {
		return nil, spanErr(span, ErrForbidden)
	}

	v := &validator{}
	v.require(cmd.TimeSlot != "", appointment.ErrTimeSlotRequired.Error())
	v.require(cmd.TypeOfDoctor != "", appointment.ErrSpecialtyRequired.Error())
	if err := v.err(); err != nil {
		return nil, err
	}

	worker, err := s.accounts.FirstByRole(ctx, domain.RoleCommunityWorker)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, spanErr(span, ErrServiceUnavailable)
	}
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("finding community worker: %w", err))
	}

	doc, err := s.practitionerFor(ctx, cmd.TypeOfDoctor)
	if err != nil {
		return nil, spanErr(span, err)
	}

	a := &appointment.Appointment{
		UserID:       patient.ID,
		AshaWorkerID: &worker.ID,
		Name:         patient.Username,
		TimeSlot:     cmd.TimeSlot,
		TypeOfDoctor: cmd.TypeOfDoctor,
		Status:       appointment.StatusPending,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, spanErr(span, fmt.Errorf("creating appointment: %w", err))
	}

	s.notifier.Publish(ctx, notify.ChannelCommunityWorker, notify.EventAppointmentAssigned, map[string]any{
		"appointment_id": a.ID.String(),
		"patient_name":   patient.Username,
		"doctor_name":    doc.Name,
		"time_slot":      a.TimeSlot,
	})

	s.metrics.AppointmentStatus(string(a.Status))
	s.audit.LogAsync(ctx, caller.audit(domain.ActionCreate, "appointment", a.ID.String()))
	return a, nil
}

// ApproveAppointment is idempotent on Approved and refuses Prescribed.
// It does not notify anyone.
func (s *CoordinationService) ApproveAppointment(ctx context.Context, caller Caller, appointmentID uuid.UUID) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "CoordinationService.ApproveAppointment",
		trace.WithAttributes(attribute.String("appointment.id", appointmentID.String())))
	defer span.End()

	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, spanErr(span, err)
	}
	if _, err := s.doctorFor(ctx, caller, a); err != nil {
		return nil, spanErr(span, err)
	}

	if a.Status == appointment.StatusApproved {
		return a, nil
	}
	if !a.CanTransitionTo(appointment.StatusApproved) {
		return nil, spanErr(span, appointment.ErrInvalidStatusTransition)
	}

	updated, err := s.appointments.Approve(ctx, appointmentID)
	if err != nil {
		return nil, spanErr(span, err)
	}

	s.metrics.AppointmentStatus(string(updated.Status))
	s.audit.LogAsync(ctx, AuditEntry{
		AccountID: caller.AccountID, Role: caller.Role,
		Action: domain.ActionUpdate, ResourceType: "appointment", ResourceID: appointmentID.String(),
		IPAddress: caller.IPAddress, RequestID: caller.RequestID,
		Changes: `{"status":"Approved"}`,
	})
	return updated, nil
}

// UploadPrescription stores the file and marks the appointment Prescribed. A
// stored file whose database update fails is removed again.
func (s *CoordinationService) UploadPrescription(ctx context.Context, caller Caller, appointmentID uuid.UUID, upload *prescription.Upload) (*appointment.Appointment, error) {
	ctx, span := tracer.Start(ctx, "CoordinationService.UploadPrescription",
		trace.WithAttributes(attribute.String("appointment.id", appointmentID.String())))
	defer span.End()

	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, spanErr(span, err)
	}
	doctor, err := s.doctorFor(ctx, caller, a)
	if err != nil {
		return nil, spanErr(span, err)
	}
	if err := upload.Validate(); err != nil {
		return nil, spanErr(span, err)
	}

	stored, err := s.files.Save(ctx, upload.Name, upload.Content)
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("storing prescription: %w", err))
	}

	updated, err := s.appointments.AttachPrescription(ctx, appointmentID, stored.Ref)
	if err != nil {
		if delErr := s.files.Delete(context.WithoutCancel(ctx), stored.Ref); delErr != nil {
			s.log.Error("failed to remove orphaned prescription",
				zap.String("ref", stored.Ref),
				zap.Error(delErr),
			)
		}
		return nil, spanErr(span, err)
	}

	if a.HasPrescription() && *a.PrescriptionFile != stored.Ref {
		if err := s.files.Delete(ctx, *a.PrescriptionFile); err != nil {
			s.log.Warn("failed to remove replaced prescription", zap.String("ref", *a.PrescriptionFile), zap.Error(err))
		}
	}

	doctorName := s.displayName(ctx, doctor)
	if a.AshaWorkerID != nil {
		if worker, err := s.accounts.GetByID(ctx, *a.AshaWorkerID); err == nil && worker.Phone != "" {
			body := fmt.Sprintf("Prescription uploaded for %s by %s. Please check your account", a.Name, doctorName)
			s.notifier.QueueSMS(ctx, worker.Phone, body,
				zap.String("recipient", "community_worker"),
				zap.String("appointment_id", a.ID.String()),
			)
		}
	}

	s.notifier.Publish(ctx, notify.ChannelCommunityWorker, notify.EventPrescriptionUploaded, map[string]any{
		"appointment_id": a.ID.String(),
		"doctor_name":    doctorName,
		"patient_name":   a.Name,
	})

	s.metrics.PrescriptionUploaded()
	s.metrics.AppointmentStatus(string(updated.Status))
	s.audit.LogAsync(ctx, caller.audit(domain.ActionCreate, "prescription", a.ID.String()))

	s.log.Info("prescription uploaded",
		zap.String("appointment_id", a.ID.String()),
		zap.String("ref", stored.Ref),
		zap.Int64("size", stored.Size),
	)
	return updated, nil
}

// FetchPrescription opens the prescription for streaming. Downloads as an
// attachment are reserved for the assigned community worker; inline viewing
// is also open to the patient, a doctor of the specialty and admins.
func (s *CoordinationService) FetchPrescription(ctx context.Context, caller Caller, appointmentID uuid.UUID, asAttachment bool) (*prescription.Download, error) {
	ctx, span := tracer.Start(ctx, "CoordinationService.FetchPrescription",
		trace.WithAttributes(
			attribute.String("appointment.id", appointmentID.String()),
			attribute.Bool("attachment", asAttachment),
		))
	defer span.End()

	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, spanErr(span, err)
	}

	requester, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil || !canReadPrescription(requester, a, asAttachment) {
		return nil, spanErr(span, ErrForbidden)
	}

	if !a.HasPrescription() {
		return nil, spanErr(span, prescription.ErrPrescriptionNotFound)
	}

	rc, meta, err := s.files.Open(ctx, *a.PrescriptionFile)
	if err != nil {
		return nil, spanErr(span, err)
	}

	s.audit.LogAsync(ctx, caller.audit(domain.ActionRead, "prescription", a.ID.String()))
	return &prescription.Download{
		Content:     rc,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		FileName:    prescription.DownloadName(a.ID, *a.PrescriptionFile),
	}, nil
}

func canReadPrescription(requester *domain.Account, a *appointment.Appointment, asAttachment bool) bool {
	if asAttachment {
		return requester.Role == domain.RoleCommunityWorker && a.AssignedTo(requester.ID)
	}

	switch requester.Role {
	case domain.RolePatient:
		return a.UserID == requester.ID
	case domain.RoleCommunityWorker:
		return a.AssignedTo(requester.ID)
	case domain.RoleDoctor:
		return requester.Specialty == a.TypeOfDoctor
	case domain.RoleAdmin:
		return true
	}
	return false
}

// ListAppointments returns the caller's dashboard: doctors see their
// specialty, patients their own, workers their assignments, admins everything.
func (s *CoordinationService) ListAppointments(ctx context.Context, caller Caller, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	a, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil {
		return nil, ErrForbidden
	}

	switch a.Role {
	case domain.RoleDoctor:
		q.TypeOfDoctor = &a.Specialty
	case domain.RolePatient:
		q.UserID = &a.ID
	case domain.RoleCommunityWorker:
		q.AshaWorkerID = &a.ID
	case domain.RoleAdmin:
	default:
		return nil, ErrForbidden
	}

	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.appointments.List(ctx, q)
}

func (s *CoordinationService) DeleteAppointment(ctx context.Context, caller Caller, appointmentID uuid.UUID) error {
	admin, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil || admin.Role != domain.RoleAdmin {
		return ErrForbidden
	}

	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, appointmentID); err != nil {
		return fmt.Errorf("deleting appointment: %w", err)
	}

	if a.HasPrescription() {
		if err := s.files.Delete(ctx, *a.PrescriptionFile); err != nil {
			s.log.Warn("failed to remove prescription of deleted appointment", zap.Error(err))
		}
	}

	s.audit.LogAsync(ctx, caller.audit(domain.ActionDelete, "appointment", appointmentID.String()))
	return nil
}

// doctorFor returns the caller's account if it is a doctor whose specialty
// matches the appointment.
func (s *CoordinationService) doctorFor(ctx context.Context, caller Caller, a *appointment.Appointment) (*domain.Account, error) {
	doctor, err := s.accounts.GetByID(ctx, caller.AccountID)
	if err != nil || doctor.Role != domain.RoleDoctor || doctor.Specialty != a.TypeOfDoctor {
		return nil, ErrForbidden
	}
	return doctor, nil
}

func (s *CoordinationService) displayName(ctx context.Context, doctor *domain.Account) string {
	if p, err := s.practitioners.GetByAccountID(ctx, doctor.ID); err == nil {
		return p.Name
	}
	return doctor.Username
}

// phoneOf resolves the contact number for a consultation's doctor name,
// including the fallback identity.
func (s *CoordinationService) phoneOf(ctx context.Context, doctorName string) string {
	p, err := s.practitioners.GetByName(ctx, doctorName)
	if err == nil {
		return p.PhoneNumber
	}
	if doctorName == s.fallbackName {
		return s.fallbackPhone
	}
	return ""
}

func joinResult(c *consultation.Consultation) *JoinResult {
	return &JoinResult{
		ConsultationID: c.ID,
		RoomLink:       c.VideoCallLink,
		DoctorJoined:   c.DoctorJoined,
		PatientJoined:  c.PatientJoined,
	}
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
