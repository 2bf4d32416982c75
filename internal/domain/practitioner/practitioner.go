package practitioner

import (
	"time"

	"github.com/google/uuid"
)

// Practitioner is a doctor as listed in the directory. A row may exist without
// a login account (directory-only entries seeded at install time).
type Practitioner struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	AccountID *uuid.UUID `gorm:"column:account_id;type:uuid;uniqueIndex" json:"account_id,omitempty"`

	Name          string `gorm:"column:name;type:varchar(100);not null;index" json:"name"`
	Specialty     string `gorm:"column:specialty;type:varchar(100);not null;index" json:"specialty"`
	PhoneNumber   string `gorm:"column:phone_number;type:varchar(20)" json:"phone_number"`
	VideoCallLink string `gorm:"column:video_call_link;type:varchar(255)" json:"video_call_link,omitempty"`
}

func (Practitioner) TableName() string {
	return "clinical.practitioners"
}

// Fallback builds the unpersisted identity used when no practitioner of the
// recommended specialty is registered.
func Fallback(name, phone, specialty string) *Practitioner {
	return &Practitioner{
		Name:        name,
		Specialty:   specialty,
		PhoneNumber: phone,
	}
}

// IsFallback reports whether p was produced by Fallback.
func (p *Practitioner) IsFallback() bool {
	return p.ID == uuid.Nil
}
