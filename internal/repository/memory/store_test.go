package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
)

func TestStore_TransactionRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.Accounts().Create(ctx, &domain.Account{Username: "a", Role: domain.RolePatient}); err != nil {
			return err
		}
		if err := s.Practitioners().Create(ctx, &practitioner.Practitioner{Name: "Dr. A", Specialty: "Neurologist"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if a, p, _, _ := s.Counts(); a != 0 || p != 0 {
		t.Errorf("expected nothing committed, got %d accounts %d practitioners", a, p)
	}

	// creation order is restored too
	first := &domain.Account{Username: "b", Role: domain.RolePatient}
	if err := s.Accounts().Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Accounts().FirstByRole(ctx, domain.RolePatient)
	if err != nil || got.ID != first.ID {
		t.Errorf("FirstByRole = %v, %v", got, err)
	}
}

func TestStore_NestedTransactionJoinsOuter(t *testing.T) {
	s := NewStore()
	boom := errors.New("boom")

	err := s.WithinTransaction(context.Background(), func(ctx context.Context) error {
		inner := s.WithinTransaction(ctx, func(ctx context.Context) error {
			return s.Accounts().Create(ctx, &domain.Account{Username: "inner", Role: domain.RoleAdmin})
		})
		if inner != nil {
			return inner
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if a, _, _, _ := s.Counts(); a != 0 {
		t.Errorf("inner write survived outer rollback")
	}
}

func TestStore_RollbackKeepsWritesOutsideTransaction(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	outside := &consultation.Consultation{DoctorName: "Dr. A"}
	inside := &consultation.Consultation{DoctorName: "Dr. B"}
	_ = s.Consultations().Create(ctx, outside)
	_ = s.Consultations().Create(ctx, inside)

	var created uuid.UUID
	err := s.WithinTransaction(ctx, func(txCtx context.Context) error {
		c := &consultation.Consultation{DoctorName: "Dr. C"}
		if err := s.Consultations().Create(txCtx, c); err != nil {
			return err
		}
		created = c.ID
		if _, err := s.Consultations().MarkJoined(txCtx, inside.ID, consultation.ParticipantDoctor); err != nil {
			return err
		}

		// another request joins while the transaction is still open
		joined := make(chan error, 1)
		go func() {
			_, err := s.Consultations().MarkJoined(context.Background(), outside.ID, consultation.ParticipantPatient)
			joined <- err
		}()
		if err := <-joined; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := s.Consultations().GetByID(ctx, outside.ID)
	if err != nil || !got.PatientJoined {
		t.Errorf("join made outside the transaction was lost: %+v, %v", got, err)
	}
	got, _ = s.Consultations().GetByID(ctx, inside.ID)
	if got.DoctorJoined {
		t.Error("join made inside the transaction survived rollback")
	}
	if _, err := s.Consultations().GetByID(ctx, created); !errors.Is(err, consultation.ErrConsultationNotFound) {
		t.Errorf("consultation created in the transaction survived rollback: %v", err)
	}
}

func TestStore_RollbackRestoresDeletedRows(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	patient := &domain.Account{Username: "p", Role: domain.RolePatient}
	_ = s.Accounts().Create(ctx, patient)
	appt := &appointment.Appointment{UserID: patient.ID, TypeOfDoctor: "Neurologist"}
	_ = s.Appointments().Create(ctx, appt)

	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.Accounts().Delete(ctx, patient.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.Accounts().GetByID(ctx, patient.ID); err != nil {
		t.Errorf("deleted account not restored: %v", err)
	}
	if _, err := s.Appointments().GetByID(ctx, appt.ID); err != nil {
		t.Errorf("cascaded appointment not restored: %v", err)
	}
}

func TestAccountRepository_Uniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Accounts()

	if err := repo.Create(ctx, &domain.Account{Username: "asha", Email: "Asha@example.org"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, &domain.Account{Username: "other", Email: "asha@example.org"}); !errors.Is(err, domain.ErrAccountExists) {
		t.Errorf("email match should be case-insensitive, got %v", err)
	}
	if err := repo.Create(ctx, &domain.Account{Username: "asha", Email: "x@example.org"}); !errors.Is(err, domain.ErrAccountExists) {
		t.Errorf("duplicate username accepted: %v", err)
	}
	if err := repo.Create(ctx, &domain.Account{Username: "n1"}); err != nil {
		t.Fatalf("Create without email: %v", err)
	}
	if err := repo.Create(ctx, &domain.Account{Username: "n2"}); err != nil {
		t.Errorf("two accounts without email should coexist: %v", err)
	}
}

func TestAccountRepository_LocksAfterFailures(t *testing.T) {
	s := NewStore()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	a := &domain.Account{Username: "doc", Role: domain.RoleDoctor}
	_ = s.Accounts().Create(ctx, a)

	for i := 0; i < maxFailedAttempts; i++ {
		if err := s.Accounts().UpdateLoginAttempt(ctx, a.ID, false); err != nil {
			t.Fatalf("UpdateLoginAttempt: %v", err)
		}
	}
	got, _ := s.Accounts().GetByID(ctx, a.ID)
	if got.LockedUntil == nil || !got.LockedUntil.Equal(now.Add(lockDuration)) {
		t.Fatalf("expected lock until %s, got %v", now.Add(lockDuration), got.LockedUntil)
	}

	_ = s.Accounts().UpdateLoginAttempt(ctx, a.ID, true)
	got, _ = s.Accounts().GetByID(ctx, a.ID)
	if got.LockedUntil != nil || got.FailedLoginCount != 0 || got.LastLoginAt == nil {
		t.Errorf("successful login should reset the counter, got %+v", got)
	}
}

func TestAccountRepository_DeleteCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	patient := &domain.Account{Username: "p", Role: domain.RolePatient}
	worker := &domain.Account{Username: "w", Role: domain.RoleCommunityWorker}
	_ = s.Accounts().Create(ctx, patient)
	_ = s.Accounts().Create(ctx, worker)

	owned := &appointment.Appointment{UserID: patient.ID, AshaWorkerID: &worker.ID, TypeOfDoctor: "Neurologist"}
	other := &appointment.Appointment{UserID: uuid.New(), AshaWorkerID: &worker.ID, TypeOfDoctor: "Neurologist"}
	_ = s.Appointments().Create(ctx, owned)
	_ = s.Appointments().Create(ctx, other)

	if err := s.Accounts().Delete(ctx, worker.ID); err != nil {
		t.Fatalf("Delete worker: %v", err)
	}
	got, _ := s.Appointments().GetByID(ctx, other.ID)
	if got.AshaWorkerID != nil {
		t.Error("worker assignment should be cleared")
	}

	if err := s.Accounts().Delete(ctx, patient.ID); err != nil {
		t.Fatalf("Delete patient: %v", err)
	}
	if _, err := s.Appointments().GetByID(ctx, owned.ID); !errors.Is(err, appointment.ErrAppointmentNotFound) {
		t.Errorf("patient appointments should be removed, got %v", err)
	}
	if err := s.Accounts().Delete(ctx, patient.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestAppointmentRepository_ListNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	user := uuid.New()

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		a := &appointment.Appointment{UserID: user, TypeOfDoctor: "General Physician", TimeSlot: "Immediate"}
		_ = s.Appointments().Create(ctx, a)
		ids[i] = a.ID
	}
	_ = s.Appointments().Create(ctx, &appointment.Appointment{UserID: uuid.New(), TypeOfDoctor: "General Physician"})

	page, err := s.Appointments().List(ctx, &appointment.ListAppointmentsQuery{UserID: &user, Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.TotalCount != 5 || page.TotalPages != 3 {
		t.Errorf("totals = %d/%d", page.TotalCount, page.TotalPages)
	}
	if len(page.Appointments) != 2 || page.Appointments[0].ID != ids[2] || page.Appointments[1].ID != ids[1] {
		t.Errorf("unexpected page contents")
	}
	if page.Appointments[0].Status != appointment.StatusPending {
		t.Errorf("default status = %q", page.Appointments[0].Status)
	}

	page, _ = s.Appointments().List(ctx, &appointment.ListAppointmentsQuery{UserID: &user, Page: 9})
	if len(page.Appointments) != 0 || page.PageSize != 20 {
		t.Errorf("out of range page = %+v", page)
	}
}

func TestAppointmentRepository_ApproveTransitions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	a := &appointment.Appointment{UserID: uuid.New(), TypeOfDoctor: "Neurologist"}
	_ = s.Appointments().Create(ctx, a)

	for range 2 {
		got, err := s.Appointments().Approve(ctx, a.ID)
		if err != nil || got.Status != appointment.StatusApproved {
			t.Fatalf("Approve = %v, %v", got, err)
		}
	}

	got, _ := s.Appointments().AttachPrescription(ctx, a.ID, "rx.pdf")
	if got.Status != appointment.StatusPrescribed || !got.HasPrescription() {
		t.Fatalf("AttachPrescription = %+v", got)
	}
	if _, err := s.Appointments().Approve(ctx, a.ID); !errors.Is(err, appointment.ErrInvalidStatusTransition) {
		t.Errorf("approving a prescribed appointment: %v", err)
	}
}
