package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/config"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/repository/memory"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/roomlink"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/carelink/pkg/filestore"
)

const (
	testPassword  = "s3cret-pass"
	fallbackName  = "General Physician"
	fallbackPhone = "+919778229882"
)

type published struct {
	channel notify.Channel
	event   string
	payload map[string]any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
	sms    []string
	smsErr error
}

func (n *recordingNotifier) Publish(_ context.Context, ch notify.Channel, event string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{channel: ch, event: event, payload: payload})
}

func (n *recordingNotifier) SendSMS(_ context.Context, to, body string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.smsErr != nil {
		return "", n.smsErr
	}
	n.sms = append(n.sms, to+"|"+body)
	return "SM-test", nil
}

func (n *recordingNotifier) QueueSMS(ctx context.Context, to, body string, _ ...zap.Field) {
	_, _ = n.SendSMS(ctx, to, body)
}

func (n *recordingNotifier) named(event string) []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []published
	for _, e := range n.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store    *memory.Store
	files    *filestore.MemoryStore
	notifier *recordingNotifier
	jwt      *auth.JWTManager

	auth     *AuthService
	accounts *AccountService
	coord    *CoordinationService
	dir      *DirectoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := zap.NewNop()
	store := memory.NewStore()
	files := filestore.NewMemoryStore(1 << 20)
	notifier := &recordingNotifier{}
	rooms := roomlink.NewIssuer("")
	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-at-least-32-bytes-long!",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "carelink-test",
	})

	audit := NewAuditService(store.Audit(), nil, log)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		audit.Shutdown(ctx)
	})

	f := &fixture{
		store:    store,
		files:    files,
		notifier: notifier,
		jwt:      jwtManager,
	}
	f.auth = NewAuthService(store.Accounts(), store.Practitioners(), store, jwtManager, audit, log)
	f.accounts = NewAccountService(store.Accounts(), audit, log)
	f.dir = NewDirectoryService(store.Practitioners(), rooms, log)
	f.coord = NewCoordinationService(CoordinationDeps{
		Accounts:      store.Accounts(),
		Practitioners: store.Practitioners(),
		Consultations: store.Consultations(),
		Appointments:  store.Appointments(),
		Tx:            store,
		Files:         files,
		Notifier:      notifier,
		Rooms:         rooms,
		Audit:         audit,
		Log:           log,
		FallbackName:  fallbackName,
		FallbackPhone: fallbackPhone,
	})
	return f
}

func register(name string) RegisterCommand {
	return RegisterCommand{
		Username: name,
		Email:    name + "@example.com",
		Password: testPassword,
		Phone:    "+15550000",
	}
}

// patient registers a patient whose profile is complete enough for triage.
func (f *fixture) patient(t *testing.T, name string) *domain.Account {
	t.Helper()
	a, err := f.auth.RegisterPatient(context.Background(), register(name))
	if err != nil {
		t.Fatalf("register patient: %v", err)
	}
	age, bg := 34, "O+"
	a, err = f.accounts.UpdateProfile(context.Background(), callerOf(a), &domain.ProfileUpdate{Age: &age, BloodGroup: &bg})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	return a
}

func (f *fixture) worker(t *testing.T, name string) *domain.Account {
	t.Helper()
	cmd := register(name)
	cmd.AreaOfOperation = "Ward 7"
	cmd.WorkerID = "ASHA-" + name
	a, err := f.auth.RegisterCommunityWorker(context.Background(), cmd)
	if err != nil {
		t.Fatalf("register worker: %v", err)
	}
	return a
}

func (f *fixture) doctor(t *testing.T, name, specialty string) *domain.Account {
	t.Helper()
	cmd := register(name)
	cmd.Specialty = specialty
	a, err := f.auth.RegisterDoctor(context.Background(), cmd)
	if err != nil {
		t.Fatalf("register doctor: %v", err)
	}
	return a
}

func (f *fixture) admin(t *testing.T, name string) *domain.Account {
	t.Helper()
	a := &domain.Account{Username: name, Email: name + "@example.com", Role: domain.RoleAdmin}
	if err := f.store.Accounts().Create(context.Background(), a); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return a
}

func callerOf(a *domain.Account) Caller {
	return Caller{AccountID: a.ID, Role: a.Role, IPAddress: "127.0.0.1", RequestID: "req-test"}
}
