// Package memory holds map-backed repositories for tests and for running the
// server without PostgreSQL. Transactions are serialized and journal the
// prior value of every row they write; rollback restores only those rows, so
// concurrent writes outside the transaction survive it.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
)

type txKey struct{}

type Store struct {
	txMu sync.Mutex

	mu            sync.RWMutex
	seq           int64
	order         map[uuid.UUID]int64
	accounts      map[uuid.UUID]domain.Account
	practitioners map[uuid.UUID]practitioner.Practitioner
	consultations map[uuid.UUID]consultation.Consultation
	appointments  map[uuid.UUID]appointment.Appointment
	audit         []domain.AuditLog

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		order:         make(map[uuid.UUID]int64),
		accounts:      make(map[uuid.UUID]domain.Account),
		practitioners: make(map[uuid.UUID]practitioner.Practitioner),
		consultations: make(map[uuid.UUID]consultation.Consultation),
		appointments:  make(map[uuid.UUID]appointment.Appointment),
		now:           time.Now,
	}
}

func (s *Store) Accounts() *AccountRepository           { return &AccountRepository{s} }
func (s *Store) Practitioners() *PractitionerRepository { return &PractitionerRepository{s} }
func (s *Store) Consultations() *ConsultationRepository { return &ConsultationRepository{s} }
func (s *Store) Appointments() *AppointmentRepository   { return &AppointmentRepository{s} }
func (s *Store) Audit() *AuditRepository                { return &AuditRepository{s} }

// prior is a row's value before the transaction first wrote it. ok is false
// for rows the transaction created.
type prior[T any] struct {
	v  T
	ok bool
}

type undo[T any] map[uuid.UUID]prior[T]

// remember keeps only the first value seen so repeated writes restore the
// original row. Caller holds s.mu.
func (u undo[T]) remember(table map[uuid.UUID]T, id uuid.UUID) {
	if _, seen := u[id]; seen {
		return
	}
	v, ok := table[id]
	u[id] = prior[T]{v: v, ok: ok}
}

func (u undo[T]) restore(table map[uuid.UUID]T, order map[uuid.UUID]int64) {
	for id, p := range u {
		if p.ok {
			table[id] = p.v
			continue
		}
		delete(table, id)
		delete(order, id)
	}
}

type journal struct {
	accounts      undo[domain.Account]
	practitioners undo[practitioner.Practitioner]
	consultations undo[consultation.Consultation]
	appointments  undo[appointment.Appointment]
}

func newJournal() *journal {
	return &journal{
		accounts:      make(undo[domain.Account]),
		practitioners: make(undo[practitioner.Practitioner]),
		consultations: make(undo[consultation.Consultation]),
		appointments:  make(undo[appointment.Appointment]),
	}
}

// undoOf returns the journal of the transaction in ctx, or nil outside one.
func undoOf(ctx context.Context) *journal {
	j, _ := ctx.Value(txKey{}).(*journal)
	return j
}

// The recorders below are no-ops on a nil journal. Caller holds s.mu.

func (j *journal) account(s *Store, id uuid.UUID) {
	if j != nil {
		j.accounts.remember(s.accounts, id)
	}
}

func (j *journal) practitioner(s *Store, id uuid.UUID) {
	if j != nil {
		j.practitioners.remember(s.practitioners, id)
	}
}

func (j *journal) consultation(s *Store, id uuid.UUID) {
	if j != nil {
		j.consultations.remember(s.consultations, id)
	}
}

func (j *journal) appointment(s *Store, id uuid.UUID) {
	if j != nil {
		j.appointments.remember(s.appointments, id)
	}
}

// WithinTransaction joins an open transaction instead of nesting.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if undoOf(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := newJournal()
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		s.mu.Lock()
		j.accounts.restore(s.accounts, s.order)
		j.practitioners.restore(s.practitioners, s.order)
		j.consultations.restore(s.consultations, s.order)
		j.appointments.restore(s.appointments, s.order)
		s.mu.Unlock()
		return err
	}
	return nil
}

// Counts reports how many rows each table holds.
func (s *Store) Counts() (accounts, practitioners, consultations, appointments int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), len(s.practitioners), len(s.consultations), len(s.appointments)
}

// AuditEntries returns a copy of everything written through Audit().
func (s *Store) AuditEntries() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditLog(nil), s.audit...)
}

// register assigns an id when missing and records creation order.
// Caller holds s.mu.
func (s *Store) register(id *uuid.UUID) time.Time {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	s.seq++
	s.order[*id] = s.seq
	return s.now().UTC()
}

// sortByOrder sorts ids by creation order. Caller holds s.mu.
func (s *Store) sortByOrder(ids []uuid.UUID, desc bool) {
	sort.Slice(ids, func(i, j int) bool {
		if desc {
			return s.order[ids[i]] > s.order[ids[j]]
		}
		return s.order[ids[i]] < s.order[ids[j]]
	})
}

func ptr[T any](v T) *T {
	return &v
}
