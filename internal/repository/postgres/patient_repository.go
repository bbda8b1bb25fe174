package postgres

import (
	"context"
	"errors"

	"github.com/carelinkhq/carelink/internal/domain/patient"
	"github.com/carelinkhq/carelink/internal/domain/scan"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

var _ patient.Repository = (*PatientRepository)(nil)

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

// AppendScan is a conditional append: the scan sequence is rewritten only
// when the stored version still equals expectedVersion, so concurrent
// appends cannot clobber each other.
func (r *PatientRepository) AppendScan(ctx context.Context, id uuid.UUID, rec *scan.Record, expectedVersion int64) error {
	var p patient.Patient
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return patient.ErrPatientNotFound
		}
		return err
	}

	if p.ScanVersion != expectedVersion {
		return patient.ErrVersionConflict
	}

	res := r.db.WithContext(ctx).
		Model(&patient.Patient{}).
		Where("id = ? AND scan_version = ?", id, expectedVersion).
		Select("Scans", "ScanVersion").
		Updates(patient.Patient{
			Scans:       append(p.Scans, *rec),
			ScanVersion: expectedVersion + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return patient.ErrVersionConflict
	}
	return nil
}
