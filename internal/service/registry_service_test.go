package service

import (
	"context"
	"errors"
	"testing"

	"github.com/carelinkhq/carelink/internal/domain"
	"github.com/carelinkhq/carelink/internal/domain/patient"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) (*RegistryService, *DirectoryService, *memPatientRepo, *memAccountRepo, uuid.UUID) {
	t.Helper()
	accounts := newMemAccountRepo()
	patients := newMemPatientRepo()
	directory := newTestDirectory(accounts)

	carer, err := directory.Register(context.Background(), "carer@b.com", testPassword, domain.RoleCaregiver, "")
	require.NoError(t, err)

	registry := NewRegistryService(patients, directory, newTestAudit(), zap.NewNop())
	return registry, directory, patients, accounts, carer.ID
}

func TestRegistryService_CreatePatient(t *testing.T) {
	registry, directory, _, _, carerID := newTestRegistry(t)
	ctx := context.Background()

	p, err := registry.CreatePatient(ctx, &patient.CreatePatientCommand{
		Name:        "  Jane Doe ",
		Age:         72,
		Email:       "Jane@Example.com",
		CaregiverID: carerID,
	}, "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, 72, p.Age)
	assert.Equal(t, "jane@example.com", p.Email)
	assert.Equal(t, carerID, p.CaregiverID)
	assert.Equal(t, carerID, p.CreatedBy)

	// The directory link is in place and resolves back to the same record.
	got, linked, err := registry.GetPatientForCaregiver(ctx, carerID)
	require.NoError(t, err)
	require.True(t, linked)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Age, got.Age)
	assert.Equal(t, p.Email, got.Email)

	linkedID, ok, err := directory.GetLinkedPatient(ctx, carerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.ID, linkedID)
}

func TestRegistryService_CreatePatient_SecondCreateOverwritesLink(t *testing.T) {
	registry, directory, patients, _, carerID := newTestRegistry(t)
	ctx := context.Background()

	first, err := registry.CreatePatient(ctx, &patient.CreatePatientCommand{
		Name: "Jane", Age: 70, Email: "jane@b.com", CaregiverID: carerID,
	}, "")
	require.NoError(t, err)

	second, err := registry.CreatePatient(ctx, &patient.CreatePatientCommand{
		Name: "John", Age: 74, Email: "john@b.com", CaregiverID: carerID,
	}, "")
	require.NoError(t, err, "a caregiver may create again; the link silently moves")

	// Both records persist with the same caregiver id; only the directory
	// link moved.
	assert.Equal(t, 2, patients.creates)
	kept, err := registry.GetPatient(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, carerID, kept.CaregiverID)

	linkedID, ok, err := directory.GetLinkedPatient(ctx, carerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, linkedID)
}

func TestRegistryService_CreatePatient_Validation(t *testing.T) {
	registry, _, patients, _, carerID := newTestRegistry(t)

	cases := []struct {
		name string
		cmd  patient.CreatePatientCommand
	}{
		{"empty name", patient.CreatePatientCommand{Age: 70, Email: "a@b.com", CaregiverID: carerID}},
		{"zero age", patient.CreatePatientCommand{Name: "Jane", Email: "a@b.com", CaregiverID: carerID}},
		{"negative age", patient.CreatePatientCommand{Name: "Jane", Age: -3, Email: "a@b.com", CaregiverID: carerID}},
		{"empty email", patient.CreatePatientCommand{Name: "Jane", Age: 70, CaregiverID: carerID}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := registry.CreatePatient(context.Background(), &tc.cmd, "")
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}

	assert.Equal(t, 0, patients.creates, "no patient record persisted for invalid input")
}

func TestRegistryService_CreatePatient_PartialLinkFailure(t *testing.T) {
	registry, _, patients, accounts, carerID := newTestRegistry(t)
	ctx := context.Background()

	accounts.linkErr = errors.New("directory unavailable")

	_, err := registry.CreatePatient(ctx, &patient.CreatePatientCommand{
		Name:        "Jane",
		Age:         70,
		Email:       "jane@b.com",
		CaregiverID: carerID,
	}, "")

	var linkErr *PartialLinkError
	require.ErrorAs(t, err, &linkErr)
	assert.NotEqual(t, uuid.Nil, linkErr.PatientID)
	assert.Equal(t, 1, patients.creates, "the patient record itself was persisted")

	// The retry touches only the link step; no second patient appears.
	accounts.linkErr = nil
	require.NoError(t, registry.RetryLink(ctx, carerID, linkErr.PatientID))
	assert.Equal(t, 1, patients.creates)

	got, linked, err := registry.GetPatientForCaregiver(ctx, carerID)
	require.NoError(t, err)
	require.True(t, linked)
	assert.Equal(t, linkErr.PatientID, got.ID)
}

func TestRegistryService_RetryLink_WrongCaregiver(t *testing.T) {
	registry, directory, _, _, carerID := newTestRegistry(t)
	ctx := context.Background()

	p, err := registry.CreatePatient(ctx, &patient.CreatePatientCommand{
		Name: "Jane", Age: 70, Email: "jane@b.com", CaregiverID: carerID,
	}, "")
	require.NoError(t, err)

	other, err := directory.Register(ctx, "other@b.com", testPassword, domain.RoleCaregiver, "")
	require.NoError(t, err)

	err = registry.RetryLink(ctx, other.ID, p.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRegistryService_RetryLink_UnknownPatient(t *testing.T) {
	registry, _, _, _, carerID := newTestRegistry(t)

	err := registry.RetryLink(context.Background(), carerID, uuid.New())
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
}

func TestRegistryService_GetPatient_NotFound(t *testing.T) {
	registry, _, _, _, _ := newTestRegistry(t)

	_, err := registry.GetPatient(context.Background(), uuid.New())
	assert.ErrorIs(t, err, patient.ErrPatientNotFound)
}

func TestRegistryService_GetPatientForCaregiver_Unlinked(t *testing.T) {
	registry, _, _, _, carerID := newTestRegistry(t)

	_, linked, err := registry.GetPatientForCaregiver(context.Background(), carerID)
	require.NoError(t, err)
	assert.False(t, linked)
}
