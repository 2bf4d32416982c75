package consultation

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)

	// MarkJoined sets the participant's flag in a single update and returns
	// the row as stored afterwards.
	MarkJoined(ctx context.Context, id uuid.UUID, p Participant) (*Consultation, error)
}
