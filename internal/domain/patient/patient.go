package patient

import (
	"strings"
	"time"

	"github.com/carelinkhq/carelink/internal/domain/scan"
	"github.com/google/uuid"
)

// Patient has exactly one owning caregiver at any time, established at
// creation and not reassignable. The scan sequence is append-only and
// guarded by ScanVersion for optimistic conditional appends.
type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Name  string `gorm:"column:name;type:varchar(200);not null"`
	Age   int    `gorm:"column:age;not null"`
	Email string `gorm:"column:email;type:varchar(255);not null"`

	CaregiverID uuid.UUID `gorm:"column:caregiver_id;type:uuid;not null;index"`

	Scans []scan.Record `gorm:"column:scans;serializer:json"`
	// ScanVersion increments on every successful append. Writers must carry
	// the version they read; a stale version fails with ErrVersionConflict.
	ScanVersion int64 `gorm:"column:scan_version;not null;default:0"`

	// Audit: who registered this patient
	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

type CreatePatientCommand struct {
	Name        string
	Age         int
	Email       string
	CaregiverID uuid.UUID
}

func (cmd *CreatePatientCommand) Validate() []string {
	var errs []string

	if strings.TrimSpace(cmd.Name) == "" {
		errs = append(errs, "name is required")
	}
	if cmd.Age <= 0 {
		errs = append(errs, "age must be a positive integer")
	}
	if strings.TrimSpace(cmd.Email) == "" {
		errs = append(errs, "email is required")
	}
	if cmd.CaregiverID == uuid.Nil {
		errs = append(errs, "caregiver_id is required")
	}

	return errs
}
