package filestore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain/prescription"
)

const pdfBody = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n"

func stores(t *testing.T, maxBytes int64) map[string]prescription.Store {
	t.Helper()
	local, err := NewLocalStore(t.TempDir(), maxBytes, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return map[string]prescription.Store{
		"local":  local,
		"memory": NewMemoryStore(maxBytes),
	}
}

func TestStore_SaveOpenDelete(t *testing.T) {
	for name, store := range stores(t, 1<<20) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			stored, err := store.Save(ctx, "scan.pdf", strings.NewReader(pdfBody))
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			if !strings.HasSuffix(stored.Ref, "_scan.pdf") {
				t.Errorf("ref = %q, want suffix _scan.pdf", stored.Ref)
			}
			if stored.ContentType != "application/pdf" {
				t.Errorf("content type = %q, want application/pdf", stored.ContentType)
			}
			if stored.Size != int64(len(pdfBody)) || stored.SHA256 == "" {
				t.Errorf("unexpected metadata %+v", stored)
			}

			rc, meta, err := store.Open(ctx, stored.Ref)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()
			if string(data) != pdfBody {
				t.Errorf("content mismatch")
			}
			if meta.Size != stored.Size {
				t.Errorf("size = %d, want %d", meta.Size, stored.Size)
			}

			if err := store.Delete(ctx, stored.Ref); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, _, err := store.Open(ctx, stored.Ref); !errors.Is(err, prescription.ErrPrescriptionNotFound) {
				t.Errorf("Open after delete: expected ErrPrescriptionNotFound, got %v", err)
			}
		})
	}
}

func TestStore_SameNameDoesNotOverwrite(t *testing.T) {
	for name, store := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, err := store.Save(ctx, "rx.pdf", strings.NewReader("first"))
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			b, err := store.Save(ctx, "rx.pdf", strings.NewReader("second"))
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			if a.Ref == b.Ref {
				t.Fatalf("two uploads share ref %q", a.Ref)
			}
		})
	}
}

func TestStore_TooLarge(t *testing.T) {
	for name, store := range stores(t, 4) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Save(context.Background(), "big.pdf", strings.NewReader("0123456789"))
			if !errors.Is(err, prescription.ErrFileTooLarge) {
				t.Errorf("expected ErrFileTooLarge, got %v", err)
			}
		})
	}
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), 0, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if _, _, err := store.Open(context.Background(), "../etc/passwd"); !errors.Is(err, prescription.ErrPrescriptionNotFound) {
		t.Errorf("expected ErrPrescriptionNotFound, got %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"scan.pdf":               "scan.pdf",
		"../../etc/passwd":       "passwd",
		`C:\docs\My Rx (1).docx`: "My_Rx_1.docx",
		"   ":                    "file",
		".pdf":                   "file.pdf",
		"__.PDF":                 "file.PDF",
		"report.":                "report",
		"/tmp/..":                "file",
	}
	for in, want := range tests {
		if got := SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
