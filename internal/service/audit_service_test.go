package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/repository/memory"
)

func TestAuditService_FlushesOnShutdown(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuditService(store.Audit(), nil, zap.NewNop())

	id := uuid.New()
	for range 3 {
		svc.LogAsync(context.Background(), AuditEntry{
			AccountID:    id,
			Role:         domain.RoleDoctor,
			Action:       domain.ActionUpdate,
			ResourceType: "appointment",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Shutdown(ctx)

	got := store.AuditEntries()
	if len(got) != 3 {
		t.Fatalf("expected 3 persisted entries, got %d", len(got))
	}
	if got[0].Changes != "{}" || got[0].AccountID != id {
		t.Errorf("unexpected entry %+v", got[0])
	}
}

func TestAuditService_IgnoresEntriesAfterShutdown(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuditService(store.Audit(), nil, zap.NewNop())
	svc.Shutdown(context.Background())

	// must not panic on the closed buffer
	svc.LogAsync(context.Background(), AuditEntry{Action: domain.ActionLogin})
	svc.Shutdown(context.Background())

	if n := len(store.AuditEntries()); n != 0 {
		t.Errorf("expected no entries, got %d", n)
	}
}
