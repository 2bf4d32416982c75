package filestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/prescription"
)

// MemoryStore keeps files in memory. Used by tests and the in-memory dev mode.
type MemoryStore struct {
	mu       sync.RWMutex
	files    map[string][]byte
	maxBytes int64
}

func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte), maxBytes: maxBytes}
}

func (s *MemoryStore) Save(ctx context.Context, name string, content io.Reader) (*prescription.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := content
	if s.maxBytes > 0 {
		src = io.LimitReader(content, s.maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, prescription.ErrFileTooLarge
	}

	ref := newRef(name)
	sum := sha256.Sum256(data)

	s.mu.Lock()
	s.files[ref] = data
	s.mu.Unlock()

	return &prescription.StoredFile{
		Ref:         ref,
		ContentType: mimetype.Detect(data).String(),
		Size:        int64(len(data)),
		SHA256:      hex.EncodeToString(sum[:]),
	}, nil
}

func (s *MemoryStore) Open(_ context.Context, ref string) (io.ReadCloser, *prescription.StoredFile, error) {
	s.mu.RLock()
	data, ok := s.files[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, prescription.ErrPrescriptionNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), &prescription.StoredFile{
		Ref:         ref,
		ContentType: mimetype.Detect(data).String(),
		Size:        int64(len(data)),
	}, nil
}

func (s *MemoryStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, ref)
	return nil
}

// Len reports how many files are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
