package service

import (
	"context"
	"sync"
	"time"

	"github.com/carelinkhq/carelink/internal/config"
	"github.com/carelinkhq/carelink/internal/domain"
	"github.com/carelinkhq/carelink/internal/domain/patient"
	"github.com/carelinkhq/carelink/internal/domain/scan"
	"github.com/carelinkhq/carelink/pkg/auth"
	"github.com/carelinkhq/carelink/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Shared across the test binary: the prometheus default registry rejects
// duplicate registration.
var testCol = metrics.NewCollector("carelink_service_test")

// Compile-time checks that the in-memory doubles satisfy the contracts.
var (
	_ AccountRepository  = (*memAccountRepo)(nil)
	_ patient.Repository = (*memPatientRepo)(nil)
	_ AuditRepository    = (*memAuditRepo)(nil)
)

type memAccountRepo struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*domain.Account
	byEmail  map[string]uuid.UUID
	linkErr  error // injected failure for SetLinkedPatient
	linkCall int
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{
		byID:    make(map[uuid.UUID]*domain.Account),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (m *memAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[a.Email]; ok {
		return ErrDuplicateAccount
	}
	cp := *a
	cp.CreatedAt = time.Now()
	m.byID[a.ID] = &cp
	m.byEmail[a.Email] = a.ID
	return nil
}

func (m *memAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *memAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccountRepo) SetLinkedPatient(ctx context.Context, accountID, patientID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkCall++
	if m.linkErr != nil {
		return m.linkErr
	}
	a, ok := m.byID[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	pid := patientID
	a.LinkedPatientID = &pid
	return nil
}

func (m *memAccountRepo) RecordLogin(ctx context.Context, id uuid.UUID) error {
	return nil
}

type memPatientRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*patient.Patient
	creates int
}

func newMemPatientRepo() *memPatientRepo {
	return &memPatientRepo{byID: make(map[uuid.UUID]*patient.Patient)}
}

func (m *memPatientRepo) Create(ctx context.Context, p *patient.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	cp := *p
	cp.CreatedAt = time.Now()
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	cp := *p
	cp.Scans = append([]scan.Record(nil), p.Scans...)
	return &cp, nil
}

func (m *memPatientRepo) AppendScan(ctx context.Context, id uuid.UUID, rec *scan.Record, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return patient.ErrPatientNotFound
	}
	if p.ScanVersion != expectedVersion {
		return patient.ErrVersionConflict
	}
	p.Scans = append(p.Scans, *rec)
	p.ScanVersion++
	return nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (m *memAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "carelink-test",
	}
}

func testIngestConfig() config.IngestConfig {
	return config.IngestConfig{
		MaxScanBytes:       5 * 1024 * 1024,
		AllowedExtensions:  []string{".dcm"},
		UploadTimeout:      2 * time.Second,
		AppendRetries:      5,
		AllowPatientUpload: false,
	}
}

func newTestAudit() *AuditService {
	return NewAuditService(&memAuditRepo{}, testCol, zap.NewNop())
}

func newTestDirectory(accounts *memAccountRepo) *DirectoryService {
	return NewDirectoryService(accounts, auth.NewJWTManager(testJWTConfig()), newTestAudit(), zap.NewNop())
}
