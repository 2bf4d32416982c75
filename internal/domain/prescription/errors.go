package prescription

import "errors"

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrUnsupportedMediaType = errors.New("unsupported prescription file type, allowed: pdf, doc, docx")
	ErrMissingFileName      = errors.New("prescription file name is required")
	ErrFileTooLarge         = errors.New("prescription file exceeds the maximum upload size")
)
