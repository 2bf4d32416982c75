package prescription

import (
	"context"
	"io"
)

// Store persists prescription files and hands back opaque references.
type Store interface {
	// Save writes content under a name derived from name. The returned Ref is
	// unique even when two uploads share a file name.
	Save(ctx context.Context, name string, content io.Reader) (*StoredFile, error)

	// Open returns ErrPrescriptionNotFound when ref is unknown.
	Open(ctx context.Context, ref string) (io.ReadCloser, *StoredFile, error)

	Delete(ctx context.Context, ref string) error
}
