package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/carelinkhq/carelink/internal/config"
	"github.com/carelinkhq/carelink/internal/domain"
	"github.com/carelinkhq/carelink/internal/domain/patient"
	"github.com/carelinkhq/carelink/internal/domain/scan"
	"github.com/carelinkhq/carelink/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IngestService validates, transfers, and appends scan artifacts to a
// patient's record. Appends are optimistic: a conditional write keyed on the
// scan version, retried a bounded number of times, so concurrent uploads for
// the same patient never overwrite each other.
type IngestService struct {
	patients patient.Repository
	accounts AccountRepository
	cfg      config.IngestConfig
	auditSvc *AuditService
	col      *metrics.Collector
	log      *zap.Logger
}

func NewIngestService(patients patient.Repository, accounts AccountRepository, cfg config.IngestConfig, auditSvc *AuditService, col *metrics.Collector, log *zap.Logger) *IngestService {
	return &IngestService{
		patients: patients,
		accounts: accounts,
		cfg:      cfg,
		auditSvc: auditSvc,
		col:      col,
		log:      log,
	}
}

// Validate checks the declared size against the configured cap and the file
// name against the format allow-list. Failures are terminal rejections; no
// write has happened yet.
func (s *IngestService) Validate(f *scan.File) error {
	if f.Size > s.cfg.MaxScanBytes {
		return scan.ErrFileTooLarge
	}
	if !f.MatchesFormat(s.cfg.AllowedExtensions) {
		return scan.ErrUnsupportedFormat
	}
	return nil
}

// Ingest runs one upload attempt through the state machine. Nothing becomes
// visible unless the attempt commits; a timeout or storage failure leaves no
// partial record behind, so the caller may safely retry the whole call.
func (s *IngestService) Ingest(ctx context.Context, patientID, uploaderID uuid.UUID, f *scan.File, ip string) (*scan.Record, error) {
	attempt := scan.NewUpload(f)

	if err := s.Validate(f); err != nil {
		_ = attempt.Advance(scan.StateRejected)
		return nil, err
	}
	_ = attempt.Advance(scan.StateValidated)

	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	uploader, err := s.accounts.GetByID(ctx, uploaderID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeUpload(uploader, p); err != nil {
		return nil, err
	}

	_ = attempt.Advance(scan.StateTransferring)

	payload, err := s.readPayload(ctx, f)
	if err != nil {
		_ = attempt.Advance(scan.StateAborted)
		return nil, err
	}

	if int64(len(payload)) > s.cfg.MaxScanBytes {
		_ = attempt.Advance(scan.StateAborted)
		return nil, scan.ErrFileTooLarge
	}
	if int64(len(payload)) != f.Size {
		_ = attempt.Advance(scan.StateAborted)
		return nil, scan.ErrPayloadIntegrity
	}

	rec := &scan.Record{
		ID:         uuid.New(),
		FileName:   f.Name,
		SizeBytes:  f.Size,
		UploadedAt: time.Now().UTC(),
		UploadedBy: uploaderID,
		Format:     scan.FormatDICOM,
		Payload:    base64.StdEncoding.EncodeToString(payload),
	}

	// Integrity: re-decode and compare lengths before anything is written.
	decoded, err := rec.Decode()
	if err != nil || int64(len(decoded)) != rec.SizeBytes {
		_ = attempt.Advance(scan.StateAborted)
		return nil, scan.ErrPayloadIntegrity
	}

	if err := s.appendWithRetry(ctx, patientID, rec); err != nil {
		_ = attempt.Advance(scan.StateAborted)
		return nil, err
	}
	_ = attempt.Advance(scan.StateCommitted)

	s.auditSvc.LogAsync(ctx, AuditEntry{
		AccountID:    uploaderID,
		Role:         string(uploader.Role),
		Action:       string(domain.ActionIngest),
		ResourceType: "scan",
		ResourceID:   rec.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("scan ingested",
		zap.String("patient_id", patientID.String()),
		zap.String("scan_id", rec.ID.String()),
		zap.Int64("size_bytes", rec.SizeBytes),
	)

	return rec, nil
}

// ListScans returns the patient's scan metadata, payloads stripped.
func (s *IngestService) ListScans(ctx context.Context, patientID, callerID uuid.UUID) ([]scan.Record, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	caller, err := s.accounts.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeRead(caller, p); err != nil {
		return nil, err
	}

	metas := make([]scan.Record, 0, len(p.Scans))
	for i := range p.Scans {
		metas = append(metas, p.Scans[i].Meta())
	}
	return metas, nil
}

// authorizeUpload allows the owning caregiver, and the patient's own account
// when the policy knob permits.
func (s *IngestService) authorizeUpload(caller *domain.Account, p *patient.Patient) error {
	if caller.ID == p.CaregiverID {
		return nil
	}
	if s.cfg.AllowPatientUpload && caller.Role == domain.RolePatient && caller.Email == p.Email {
		return nil
	}
	return ErrForbidden
}

// authorizeRead allows the owning caregiver and always the patient's own
// account. The upload knob does not gate reads.
func (s *IngestService) authorizeRead(caller *domain.Account, p *patient.Patient) error {
	if caller.ID == p.CaregiverID {
		return nil
	}
	if caller.Role == domain.RolePatient && caller.Email == p.Email {
		return nil
	}
	return ErrForbidden
}

// readPayload reads the stream fully under the configured deadline. On
// timeout the read goroutine's buffer is abandoned; nothing partial escapes.
func (s *IngestService) readPayload(ctx context.Context, f *scan.File) ([]byte, error) {
	tctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		// One byte past the cap is enough to catch streams larger than
		// their declared size.
		data, err := io.ReadAll(io.LimitReader(f.Content, s.cfg.MaxScanBytes+1))
		done <- result{data: data, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("reading scan payload: %w", r.err)
		}
		return r.data, nil
	case <-tctx.Done():
		return nil, scan.ErrTransferTimeout
	}
}

func (s *IngestService) appendWithRetry(ctx context.Context, patientID uuid.UUID, rec *scan.Record) error {
	for i := 0; i < s.cfg.AppendRetries; i++ {
		cur, err := s.patients.GetByID(ctx, patientID)
		if err != nil {
			return err
		}

		err = s.patients.AppendScan(ctx, patientID, rec, cur.ScanVersion)
		if err == nil {
			return nil
		}
		if errors.Is(err, patient.ErrVersionConflict) {
			s.col.AppendConflictTotal.Inc()
			s.log.Debug("scan append conflict, retrying",
				zap.String("patient_id", patientID.String()),
				zap.Int("attempt", i+1),
			)
			continue
		}
		if errors.Is(err, patient.ErrPatientNotFound) {
			return err
		}
		return fmt.Errorf("%w: %s", scan.ErrStorageWrite, err)
	}

	return fmt.Errorf("%w: append retries exhausted", scan.ErrStorageWrite)
}
