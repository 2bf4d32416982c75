// Package filestore implements prescription.Store on the local filesystem and
// in memory.
package filestore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/prescription"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName strips directories and anything outside [A-Za-z0-9._-]. The
// extension survives even when nothing is left of the stem.
func SanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	ext := strings.Trim(filepath.Ext(base), "_")
	if ext == "." {
		ext = ""
	}
	stem := strings.Trim(strings.TrimSuffix(base, filepath.Ext(base)), "._")
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}

// newRef prefixes the sanitized name with a random id so uploads with the same
// file name never overwrite each other.
func newRef(name string) string {
	return uuid.NewString() + "_" + SanitizeName(name)
}

type LocalStore struct {
	dir      string
	maxBytes int64
	log      *zap.Logger
}

func NewLocalStore(dir string, maxBytes int64, log *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating prescription dir: %w", err)
	}
	return &LocalStore{dir: dir, maxBytes: maxBytes, log: log.Named("filestore")}, nil
}

func (s *LocalStore) Save(ctx context.Context, name string, content io.Reader) (*prescription.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref := newRef(name)
	path := filepath.Join(s.dir, ref)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", ref, err)
	}

	hash := sha256.New()
	src := content
	if s.maxBytes > 0 {
		src = io.LimitReader(content, s.maxBytes+1)
	}

	// The first 3KB are enough for mimetype detection.
	var head bytes.Buffer
	n, err := io.Copy(io.MultiWriter(f, hash, &limitedBuffer{buf: &head, max: 3072}), src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = prescription.ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, prescription.ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("writing %s: %w", ref, err)
	}

	stored := &prescription.StoredFile{
		Ref:         ref,
		ContentType: mimetype.Detect(head.Bytes()).String(),
		Size:        n,
		SHA256:      hex.EncodeToString(hash.Sum(nil)),
	}
	s.log.Info("prescription stored",
		zap.String("ref", ref),
		zap.Int64("size", n),
		zap.String("content_type", stored.ContentType),
	)
	return stored, nil
}

func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, *prescription.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	path, err := s.resolve(ref)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, prescription.ErrPrescriptionNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", ref, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", ref, err)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("detecting type of %s: %w", ref, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("rewinding %s: %w", ref, err)
	}

	return f, &prescription.StoredFile{Ref: ref, ContentType: mt.String(), Size: info.Size()}, nil
}

func (s *LocalStore) Delete(_ context.Context, ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", ref, err)
	}
	return nil
}

// resolve rejects references that would escape the store directory.
func (s *LocalStore) resolve(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || ref == "." || ref == ".." {
		return "", prescription.ErrPrescriptionNotFound
	}
	return filepath.Join(s.dir, ref), nil
}

type limitedBuffer struct {
	buf *bytes.Buffer
	max int
}

func (l *limitedBuffer) Write(p []byte) (int, error) {
	if room := l.max - l.buf.Len(); room > 0 {
		if len(p) > room {
			l.buf.Write(p[:room])
		} else {
			l.buf.Write(p)
		}
	}
	return len(p), nil
}
