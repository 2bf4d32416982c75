package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient         Role = "patient"
	RoleDoctor          Role = "doctor"
	RoleCommunityWorker Role = "community_worker"
	RoleAdmin           Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleCommunityWorker, RoleAdmin:
		return true
	}
	return false
}

// Account is the single identity table for every role. The role is fixed at
// registration and never inferred from which optional columns are filled.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Username     string `gorm:"column:username;type:varchar(80);uniqueIndex;not null" json:"username"`
	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index" json:"role"`
	Phone        string `gorm:"column:phone;type:varchar(20)" json:"phone,omitempty"`

	// Doctor
	Specialty string `gorm:"column:specialty;type:varchar(100);index" json:"specialty,omitempty"`

	// Community worker
	AreaOfOperation string `gorm:"column:area_of_operation;type:varchar(200)" json:"area_of_operation,omitempty"`
	WorkerID        string `gorm:"column:worker_id;type:varchar(50)" json:"worker_id,omitempty"`

	// Patient demographics. Age and blood group gate the triage flow.
	Address     string     `gorm:"column:address;type:text" json:"address,omitempty"`
	DateOfBirth *time.Time `gorm:"column:date_of_birth;type:date" json:"date_of_birth,omitempty"`
	Gender      string     `gorm:"column:gender;type:varchar(20)" json:"gender,omitempty"`
	Age         *int       `gorm:"column:age" json:"age,omitempty"`
	BloodGroup  string     `gorm:"column:blood_group;type:varchar(5)" json:"blood_group,omitempty"`

	FailedLoginCount int        `gorm:"column:failed_login_count;default:0" json:"-"`
	LockedUntil      *time.Time `gorm:"column:locked_until" json:"-"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
}

func (Account) TableName() string {
	return "auth.accounts"
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (a *Account) IsLocked() bool {
	return a.LockedUntil != nil && time.Now().Before(*a.LockedUntil)
}

// TriageReady reports whether the profile carries what the symptom checker needs.
func (a *Account) TriageReady() bool {
	return a.Age != nil && *a.Age > 0 && a.BloodGroup != ""
}

// ProfileUpdate carries the optional profile fields a caller may change.
// Nil means "leave as is".
type ProfileUpdate struct {
	Phone           *string
	Address         *string
	Gender          *string
	Age             *int
	BloodGroup      *string
	DateOfBirth     *time.Time
	AreaOfOperation *string
	WorkerID        *string
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionLogin  AuditAction = "login"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`
	Role      Role      `gorm:"column:role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"`

	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`
	Changes   string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

type Claims struct {
	AccountID uuid.UUID `json:"sub"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
}
