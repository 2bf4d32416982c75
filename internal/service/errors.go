package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/carelink/internal/domain"
)

var (
	ErrForbidden          = errors.New("forbidden: insufficient permissions")
	ErrServiceUnavailable = errors.New("no community health worker is available right now")
	ErrProfileIncomplete  = errors.New("please update your profile with age and blood group before using the symptom checker")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// validator collects field errors and turns them into a *ValidationError.
type validator struct {
	fields []string
}

func (v *validator) require(ok bool, msg string) {
	if !ok {
		v.fields = append(v.fields, msg)
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// Caller identifies who is invoking an operation. Only AccountID is trusted
// for authorization; the role is re-read from storage.
type Caller struct {
	AccountID uuid.UUID
	Role      domain.Role
	IPAddress string
	RequestID string
}

type AuditEntry struct {
	AccountID    uuid.UUID
	Role         domain.Role
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	Changes      string
}

func (c Caller) audit(action domain.AuditAction, resourceType, resourceID string) AuditEntry {
	return AuditEntry{
		AccountID:    c.AccountID,
		Role:         c.Role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    c.IPAddress,
		RequestID:    c.RequestID,
	}
}
