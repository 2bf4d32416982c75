package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
)

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.auth.RegisterPatient(ctx, register("ravi"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	age, bg, addr := 40, " b- ", "12 Lake Rd"
	got, err := f.accounts.UpdateProfile(ctx, callerOf(a), &domain.ProfileUpdate{Age: &age, BloodGroup: &bg, Address: &addr})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.BloodGroup != "B-" || *got.Age != 40 || got.Address != addr {
		t.Errorf("unexpected profile %+v", got)
	}
	if !got.TriageReady() {
		t.Error("profile should be ready for triage")
	}
}

func TestUpdateProfile_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	patient, err := f.auth.RegisterPatient(ctx, register("ravi"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	badAge, badGroup, area := 0, "Z+", "Ward 9"
	tests := map[string]*domain.ProfileUpdate{
		"age":         {Age: &badAge},
		"blood group": {BloodGroup: &badGroup},
		"worker area": {AreaOfOperation: &area},
	}
	for name, upd := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.accounts.UpdateProfile(ctx, callerOf(patient), upd)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
		})
	}

	worker := f.worker(t, "asha1")
	if _, err := f.accounts.UpdateProfile(ctx, callerOf(worker), &domain.ProfileUpdate{AreaOfOperation: &area}); err != nil {
		t.Errorf("worker area update: %v", err)
	}
}

func TestDeleteAccount_CascadesAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	worker := f.worker(t, "asha1")
	patient := f.patient(t, "ravi")
	admin := f.admin(t, "root")

	if _, err := f.coord.BookAppointment(ctx, callerOf(patient), appointment.BookAppointmentCommand{
		TimeSlot: "tomorrow", TypeOfDoctor: "General Physician",
	}); err != nil {
		t.Fatalf("book: %v", err)
	}

	if err := f.accounts.DeleteAccount(ctx, callerOf(worker), patient.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-admin: expected ErrForbidden, got %v", err)
	}
	if err := f.accounts.DeleteAccount(ctx, callerOf(admin), admin.ID); err == nil {
		t.Error("admins should not delete themselves")
	}
	if err := f.accounts.DeleteAccount(ctx, callerOf(admin), patient.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, _, _, appointments := f.store.Counts()
	if appointments != 0 {
		t.Errorf("appointments left = %d", appointments)
	}
	if _, err := f.accounts.GetProfile(ctx, callerOf(patient)); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestListAccounts_AdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	worker := f.worker(t, "asha1")
	f.patient(t, "ravi")
	admin := f.admin(t, "root")

	if _, err := f.accounts.ListAccounts(ctx, callerOf(worker), nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	role := domain.RolePatient
	list, err := f.accounts.ListAccounts(ctx, callerOf(admin), &role)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Username != "ravi" {
		t.Errorf("unexpected accounts %+v", list)
	}
}

func TestDirectorySeed_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.dir.Seed(ctx, DefaultDirectory)
	if err != nil || n != len(DefaultDirectory) {
		t.Fatalf("first seed = %d, %v", n, err)
	}
	n, err = f.dir.Seed(ctx, DefaultDirectory)
	if err != nil || n != 0 {
		t.Fatalf("second seed = %d, %v", n, err)
	}

	neuro, err := f.dir.ListPractitioners(ctx, "Neurologist")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(neuro) != 1 || neuro[0].Name != "Dr. Archana" || neuro[0].VideoCallLink == "" {
		t.Errorf("unexpected neurologists %+v", neuro)
	}

	if _, err := f.dir.Seed(ctx, []practitioner.Practitioner{{Name: "Dr. X"}}); !errors.Is(err, practitioner.ErrSpecialtyRequired) {
		t.Errorf("expected ErrSpecialtyRequired, got %v", err)
	}
}

func TestAlertService(t *testing.T) {
	feed := notify.NewFeed(2)
	n := &recordingNotifier{}
	svc := NewAlertService(feed, n, zap.NewNop())
	ctx := context.Background()

	for i := range 3 {
		svc.PostNotification(ctx, map[string]any{"n": i})
	}
	recent := svc.RecentNotifications(ctx, 10)
	if len(recent) != 2 || recent[0].Payload["n"] != 2 {
		t.Errorf("recent = %+v", recent)
	}

	if _, err := svc.SendSMSAlert(ctx, "", "ravi"); err == nil {
		t.Error("expected validation error for missing phone")
	}
	sid, err := svc.SendSMSAlert(ctx, "+15550001", "ravi")
	if err != nil || sid == "" {
		t.Fatalf("send = %q, %v", sid, err)
	}

	n.smsErr = notify.ErrTransientNotification
	if _, err := svc.SendSMSAlert(ctx, "+15550001", "ravi"); !errors.Is(err, notify.ErrTransientNotification) {
		t.Errorf("expected provider failure to surface, got %v", err)
	}
}
