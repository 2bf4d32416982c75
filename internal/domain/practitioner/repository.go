package practitioner

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Practitioner) error

	// FirstBySpecialty returns the earliest registered practitioner whose
	// specialty matches exactly. Returns ErrPractitionerNotFound if none.
	FirstBySpecialty(ctx context.Context, specialty string) (*Practitioner, error)

	GetByName(ctx context.Context, name string) (*Practitioner, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Practitioner, error)

	// List returns practitioners ordered by registration; an empty specialty
	// lists everyone.
	List(ctx context.Context, specialty string) ([]*Practitioner, error)
}
