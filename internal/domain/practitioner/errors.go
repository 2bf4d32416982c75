package practitioner

import "errors"

var (
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrSpecialtyRequired    = errors.New("specialty is required")
)
