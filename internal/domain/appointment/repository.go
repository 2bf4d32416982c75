package appointment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, q *ListAppointmentsQuery) (*PagedAppointments, error)

	// Approve moves a Pending or Approved appointment to Approved in one
	// conditional update. Returns ErrInvalidStatusTransition for any other
	// current status.
	Approve(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// AttachPrescription sets the file reference and status Prescribed together.
	AttachPrescription(ctx context.Context, id uuid.UUID, ref string) (*Appointment, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
