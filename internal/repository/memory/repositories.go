package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/consultation"
	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/practitioner"
)

const (
	maxFailedAttempts = 5
	lockDuration      = 15 * time.Minute
)

type AccountRepository struct{ s *Store }

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.accounts {
		if existing.Username == a.Username || (a.Email != "" && strings.EqualFold(existing.Email, a.Email)) {
			return domain.ErrAccountExists
		}
	}
	now := r.s.register(&a.ID)
	a.CreatedAt, a.UpdatedAt = now, now
	undoOf(ctx).account(r.s, a.ID)
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (r *AccountRepository) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.accounts {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *AccountRepository) FirstByRole(ctx context.Context, role domain.Role) (*domain.Account, error) {
	list, err := r.List(ctx, &role)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return list[0], nil
}

func (r *AccountRepository) List(_ context.Context, role *domain.Role) ([]*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(r.s.accounts))
	for id, a := range r.s.accounts {
		if role == nil || a.Role == *role {
			ids = append(ids, id)
		}
	}
	r.s.sortByOrder(ids, false)

	out := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, ptr(r.s.accounts[id]))
	}
	return out, nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id uuid.UUID, upd *domain.ProfileUpdate) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if upd.Phone != nil {
		a.Phone = *upd.Phone
	}
	if upd.Address != nil {
		a.Address = *upd.Address
	}
	if upd.Gender != nil {
		a.Gender = *upd.Gender
	}
	if upd.Age != nil {
		a.Age = ptr(*upd.Age)
	}
	if upd.BloodGroup != nil {
		a.BloodGroup = *upd.BloodGroup
	}
	if upd.DateOfBirth != nil {
		a.DateOfBirth = ptr(*upd.DateOfBirth)
	}
	if upd.AreaOfOperation != nil {
		a.AreaOfOperation = *upd.AreaOfOperation
	}
	if upd.WorkerID != nil {
		a.WorkerID = *upd.WorkerID
	}
	a.UpdatedAt = r.s.now().UTC()
	undoOf(ctx).account(r.s, id)
	r.s.accounts[id] = a
	return ptr(a), nil
}

func (r *AccountRepository) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	now := r.s.now().UTC()
	if success {
		a.FailedLoginCount = 0
		a.LockedUntil = nil
		a.LastLoginAt = &now
	} else {
		a.FailedLoginCount++
		if a.FailedLoginCount >= maxFailedAttempts {
			a.LockedUntil = ptr(now.Add(lockDuration))
		}
	}
	undoOf(ctx).account(r.s, id)
	r.s.accounts[id] = a
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = hash
	undoOf(ctx).account(r.s, id)
	r.s.accounts[id] = a
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	u := undoOf(ctx)
	for apptID, a := range r.s.appointments {
		switch {
		case a.UserID == id:
			u.appointment(r.s, apptID)
			delete(r.s.appointments, apptID)
		case a.AssignedTo(id):
			u.appointment(r.s, apptID)
			a.AshaWorkerID = nil
			r.s.appointments[apptID] = a
		}
	}
	for pid, p := range r.s.practitioners {
		if p.AccountID != nil && *p.AccountID == id {
			u.practitioner(r.s, pid)
			p.AccountID = nil
			r.s.practitioners[pid] = p
		}
	}
	u.account(r.s, id)
	delete(r.s.accounts, id)
	return nil
}

type PractitionerRepository struct{ s *Store }

func (r *PractitionerRepository) Create(ctx context.Context, p *practitioner.Practitioner) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.register(&p.ID)
	p.CreatedAt, p.UpdatedAt = now, now
	undoOf(ctx).practitioner(r.s, p.ID)
	r.s.practitioners[p.ID] = *p
	return nil
}

func (r *PractitionerRepository) FirstBySpecialty(_ context.Context, specialty string) (*practitioner.Practitioner, error) {
	return r.first(func(p practitioner.Practitioner) bool { return p.Specialty == specialty })
}

func (r *PractitionerRepository) GetByName(_ context.Context, name string) (*practitioner.Practitioner, error) {
	return r.first(func(p practitioner.Practitioner) bool { return p.Name == name })
}

func (r *PractitionerRepository) GetByAccountID(_ context.Context, accountID uuid.UUID) (*practitioner.Practitioner, error) {
	return r.first(func(p practitioner.Practitioner) bool { return p.AccountID != nil && *p.AccountID == accountID })
}

func (r *PractitionerRepository) List(_ context.Context, specialty string) ([]*practitioner.Practitioner, error) {
	return r.filter(func(p practitioner.Practitioner) bool { return specialty == "" || p.Specialty == specialty }), nil
}

func (r *PractitionerRepository) first(match func(practitioner.Practitioner) bool) (*practitioner.Practitioner, error) {
	list := r.filter(match)
	if len(list) == 0 {
		return nil, practitioner.ErrPractitionerNotFound
	}
	return list[0], nil
}

func (r *PractitionerRepository) filter(match func(practitioner.Practitioner) bool) []*practitioner.Practitioner {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]uuid.UUID, 0)
	for id, p := range r.s.practitioners {
		if match(p) {
			ids = append(ids, id)
		}
	}
	r.s.sortByOrder(ids, false)

	out := make([]*practitioner.Practitioner, 0, len(ids))
	for _, id := range ids {
		out = append(out, ptr(r.s.practitioners[id]))
	}
	return out
}

type ConsultationRepository struct{ s *Store }

func (r *ConsultationRepository) Create(ctx context.Context, c *consultation.Consultation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c.CreatedAt = r.s.register(&c.ID)
	undoOf(ctx).consultation(r.s, c.ID)
	r.s.consultations[c.ID] = *c
	return nil
}

func (r *ConsultationRepository) GetByID(_ context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.consultations[id]
	if !ok {
		return nil, consultation.ErrConsultationNotFound
	}
	return &c, nil
}

func (r *ConsultationRepository) MarkJoined(ctx context.Context, id uuid.UUID, p consultation.Participant) (*consultation.Consultation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.consultations[id]
	if !ok {
		return nil, consultation.ErrConsultationNotFound
	}
	if p == consultation.ParticipantDoctor {
		c.DoctorJoined = true
	} else {
		c.PatientJoined = true
	}
	undoOf(ctx).consultation(r.s, id)
	r.s.consultations[id] = c
	return &c, nil
}

type AppointmentRepository struct{ s *Store }

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.register(&a.ID)
	a.CreatedAt, a.UpdatedAt = now, now
	if a.Status == "" {
		a.Status = appointment.StatusPending
	}
	undoOf(ctx).appointment(r.s, a.ID)
	r.s.appointments[a.ID] = *a
	return nil
}

func (r *AppointmentRepository) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *AppointmentRepository) List(_ context.Context, q *appointment.ListAppointmentsQuery) (*appointment.PagedAppointments, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]uuid.UUID, 0)
	for id, a := range r.s.appointments {
		if q.UserID != nil && a.UserID != *q.UserID {
			continue
		}
		if q.AshaWorkerID != nil && !a.AssignedTo(*q.AshaWorkerID) {
			continue
		}
		if q.TypeOfDoctor != nil && a.TypeOfDoctor != *q.TypeOfDoctor {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		ids = append(ids, id)
	}
	r.s.sortByOrder(ids, true)

	page, size := q.Page, q.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	start := min((page-1)*size, len(ids))
	end := min(start+size, len(ids))

	items := make([]*appointment.Appointment, 0, end-start)
	for _, id := range ids[start:end] {
		items = append(items, ptr(r.s.appointments[id]))
	}

	total := len(ids)
	return &appointment.PagedAppointments{
		Appointments: items,
		TotalCount:   int64(total),
		Page:         page,
		PageSize:     size,
		TotalPages:   (total + size - 1) / size,
	}, nil
}

func (r *AppointmentRepository) Approve(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if a.Status != appointment.StatusPending && a.Status != appointment.StatusApproved {
		return nil, appointment.ErrInvalidStatusTransition
	}
	a.Status = appointment.StatusApproved
	a.UpdatedAt = r.s.now().UTC()
	undoOf(ctx).appointment(r.s, id)
	r.s.appointments[id] = a
	return &a, nil
}

func (r *AppointmentRepository) AttachPrescription(ctx context.Context, id uuid.UUID, ref string) (*appointment.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.PrescriptionFile = &ref
	a.Status = appointment.StatusPrescribed
	a.UpdatedAt = r.s.now().UTC()
	undoOf(ctx).appointment(r.s, id)
	r.s.appointments[id] = a
	return &a, nil
}

func (r *AppointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.appointments[id]; !ok {
		return appointment.ErrAppointmentNotFound
	}
	undoOf(ctx).appointment(r.s, id)
	delete(r.s.appointments, id)
	return nil
}

type AuditRepository struct{ s *Store }

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.OccurredAt = r.s.now().UTC()
	r.s.audit = append(r.s.audit, *entry)
	return nil
}
