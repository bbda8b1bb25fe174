package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/carelinkhq/carelink/internal/domain"
	"github.com/carelinkhq/carelink/internal/domain/patient"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PartialLinkError reports that the patient record was created but the
// directory link write failed afterwards. The caller retries the link step
// only, via RetryLink, and must not re-create the patient.
type PartialLinkError struct {
	PatientID uuid.UUID
	Err       error
}

func (e *PartialLinkError) Error() string {
	return fmt.Sprintf("patient %s created but caregiver link failed: %v", e.PatientID, e.Err)
}

func (e *PartialLinkError) Unwrap() error {
	return e.Err
}

// PatientLinker is the slice of the directory the registry depends on.
type PatientLinker interface {
	LinkPatient(ctx context.Context, caregiverID, patientID uuid.UUID) error
	GetLinkedPatient(ctx context.Context, caregiverID uuid.UUID) (uuid.UUID, bool, error)
}

// RegistryService owns patient records and the one-caregiver-per-patient
// invariant. The patient write and the directory link are two separate
// durable writes; the partial-failure path between them is explicit.
type RegistryService struct {
	repo     patient.Repository
	linker   PatientLinker
	auditSvc *AuditService
	log      *zap.Logger
}

func NewRegistryService(repo patient.Repository, linker PatientLinker, auditSvc *AuditService, log *zap.Logger) *RegistryService {
	return &RegistryService{
		repo:     repo,
		linker:   linker,
		auditSvc: auditSvc,
		log:      log,
	}
}

func (s *RegistryService) CreatePatient(ctx context.Context, cmd *patient.CreatePatientCommand, ip string) (*patient.Patient, error) {
	if fields := cmd.Validate(); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	p := &patient.Patient{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(cmd.Name),
		Age:         cmd.Age,
		Email:       strings.ToLower(strings.TrimSpace(cmd.Email)),
		CaregiverID: cmd.CaregiverID,
		CreatedBy:   cmd.CaregiverID,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	if err := s.linker.LinkPatient(ctx, cmd.CaregiverID, p.ID); err != nil {
		s.log.Error("patient created but link write failed",
			zap.String("patient_id", p.ID.String()),
			zap.String("caregiver_id", cmd.CaregiverID.String()),
			zap.Error(err),
		)
		return nil, &PartialLinkError{PatientID: p.ID, Err: err}
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		AccountID:    cmd.CaregiverID,
		Role:         string(domain.RoleCaregiver),
		Action:       string(domain.ActionCreate),
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("patient created",
		zap.String("patient_id", p.ID.String()),
		zap.String("caregiver_id", cmd.CaregiverID.String()),
	)

	return p, nil
}

// RetryLink re-runs only the directory link step after a PartialLinkError.
// The patient must already exist and belong to the caregiver, so a retry
// can never create a second record for the same logical request.
func (s *RegistryService) RetryLink(ctx context.Context, caregiverID, patientID uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return err
	}

	if p.CaregiverID != caregiverID {
		return ErrForbidden
	}

	return s.linker.LinkPatient(ctx, caregiverID, patientID)
}

func (s *RegistryService) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPatientForCaregiver resolves the caregiver's link and fetches the
// record. ok is false when the caregiver is unlinked.
func (s *RegistryService) GetPatientForCaregiver(ctx context.Context, caregiverID uuid.UUID) (*patient.Patient, bool, error) {
	patientID, linked, err := s.linker.GetLinkedPatient(ctx, caregiverID)
	if err != nil {
		return nil, false, err
	}
	if !linked {
		return nil, false, nil
	}

	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}
