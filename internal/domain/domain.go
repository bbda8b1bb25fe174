package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient   Role = "patient"
	RoleCaregiver Role = "caregiver"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleCaregiver:
		return true
	}
	return false
}

// Account is an authenticated identity with a fixed role. The role is set at
// registration and never changes afterwards.
type Account struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	Role         Role   `gorm:"column:role;type:varchar(20);not null;index"`

	// For caregiver accounts, the single patient record this account looks
	// after. Linked at patient creation; later links overwrite.
	LinkedPatientID *uuid.UUID `gorm:"column:linked_patient_id;type:uuid;index"`

	IsActive    bool       `gorm:"column:is_active;default:true;index"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}

func (Account) TableName() string {
	return "auth.accounts"
}

func (a *Account) IsCaregiver() bool {
	return a.Role == RoleCaregiver
}

type AuditAction string

const (
	ActionRegister AuditAction = "register"
	ActionLogin    AuditAction = "login"
	ActionCreate   AuditAction = "create"
	ActionRead     AuditAction = "read"
	ActionLink     AuditAction = "link"
	ActionIngest   AuditAction = "ingest"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`
	Role      Role      `gorm:"column:role;type:varchar(20);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	AccountID       uuid.UUID  `json:"sub"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	LinkedPatientID *uuid.UUID `json:"linked_patient_id,omitempty"`
}
