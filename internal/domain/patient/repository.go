package patient

import (
	"context"

	"github.com/carelinkhq/carelink/internal/domain/scan"
	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient record.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key, including the current
	// scan sequence and version. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// AppendScan appends rec to the patient's scan sequence if and only if
	// the stored scan version still equals expectedVersion. Returns
	// ErrVersionConflict when another writer got there first, and
	// ErrPatientNotFound when the patient does not exist.
	AppendScan(ctx context.Context, id uuid.UUID, rec *scan.Record, expectedVersion int64) error
}
