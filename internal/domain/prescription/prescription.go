package prescription

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	"pdf":  true,
	"doc":  true,
	"docx": true,
}

// Extension returns the lowercased extension of name without the dot, or ""
// when there is none.
func Extension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// IsAllowed reports whether name carries an accepted prescription extension.
func IsAllowed(name string) bool {
	return allowedExtensions[Extension(name)]
}

// Upload is the file a doctor submits for an appointment.
type Upload struct {
	Name    string
	Size    int64
	Content io.Reader
}

func (u *Upload) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrMissingFileName
	}
	if !IsAllowed(u.Name) {
		return fmt.Errorf("%w: %q", ErrUnsupportedMediaType, Extension(u.Name))
	}
	return nil
}

// StoredFile describes a persisted prescription.
type StoredFile struct {
	Ref         string
	ContentType string
	Size        int64
	SHA256      string
}

// Download is an opened prescription ready to be streamed to a client.
type Download struct {
	Content     io.ReadCloser
	ContentType string
	Size        int64
	FileName    string
}

// DownloadName builds the client-facing file name for an appointment's prescription.
func DownloadName(appointmentID uuid.UUID, ref string) string {
	ext := Extension(ref)
	if ext == "" {
		return fmt.Sprintf("prescription_%s", appointmentID)
	}
	return fmt.Sprintf("prescription_%s.%s", appointmentID, ext)
}
