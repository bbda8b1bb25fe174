package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carelinkhq/carelink/internal/domain"
	"github.com/carelinkhq/carelink/pkg/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateAccount   = errors.New("an account with this email already exists")
	ErrInvalidRole        = errors.New("role must be patient or caregiver")
	ErrRoleMismatch       = errors.New("account is not a caregiver")
)

type AccountRepository interface {
	// Create persists a new account. Returns ErrDuplicateAccount when the
	// email is already registered.
	Create(ctx context.Context, a *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// SetLinkedPatient durably overwrites the account's linked patient.
	SetLinkedPatient(ctx context.Context, accountID, patientID uuid.UUID) error
	RecordLogin(ctx context.Context, id uuid.UUID) error
}

// DirectoryService is the identity and role directory: it owns accounts,
// role lookups, and the caregiver-to-patient link.
type DirectoryService struct {
	accounts   AccountRepository
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	log        *zap.Logger
}

func NewDirectoryService(accounts AccountRepository, jwtManager *auth.JWTManager, auditSvc *AuditService, log *zap.Logger) *DirectoryService {
	return &DirectoryService{
		accounts:   accounts,
		jwtManager: jwtManager,
		auditSvc:   auditSvc,
		log:        log,
	}
}

// Register creates an account with a fixed role. The write is durable
// before the call returns.
func (s *DirectoryService) Register(ctx context.Context, email, password string, role domain.Role, ip string) (*domain.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var fields []string
	if email == "" {
		fields = append(fields, "email is required")
	}
	if err := validatePasswordStrength(password); err != nil {
		fields = append(fields, err.Error())
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	a := &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}

	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			return nil, err
		}
		s.log.Error("failed to create account", zap.Error(err))
		return nil, fmt.Errorf("creating account: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		AccountID:    a.ID,
		Role:         string(a.Role),
		Action:       string(domain.ActionRegister),
		ResourceType: "account",
		ResourceID:   a.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("account registered",
		zap.String("account_id", a.ID.String()),
		zap.String("role", string(a.Role)),
	)

	return a, nil
}

func (s *DirectoryService) Login(ctx context.Context, email, password string, ip string) (*domain.TokenPair, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Use bcrypt dummy hash to prevent timing-based user enumeration.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	_ = s.accounts.RecordLogin(ctx, account.ID)

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(account))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		AccountID:    account.ID,
		Role:         string(account.Role),
		Action:       string(domain.ActionLogin),
		ResourceType: "account",
		ResourceID:   account.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("account logged in",
		zap.String("account_id", account.ID.String()),
		zap.String("ip", ip),
	)

	return pair, nil
}

// RefreshToken issues a new access token given a valid refresh token.
func (s *DirectoryService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Re-validate the account is still active and pick up link changes
	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil || !account.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(account))
}

func (s *DirectoryService) GetRole(ctx context.Context, accountID uuid.UUID) (domain.Role, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	return account.Role, nil
}

// LinkPatient sets the caregiver's linked patient. The write is an
// idempotent overwrite and is durable before the call returns.
func (s *DirectoryService) LinkPatient(ctx context.Context, caregiverID, patientID uuid.UUID) error {
	account, err := s.accounts.GetByID(ctx, caregiverID)
	if err != nil {
		return err
	}

	if !account.IsCaregiver() {
		return ErrRoleMismatch
	}

	if err := s.accounts.SetLinkedPatient(ctx, caregiverID, patientID); err != nil {
		s.log.Error("failed to link patient",
			zap.String("caregiver_id", caregiverID.String()),
			zap.String("patient_id", patientID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("linking patient: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		AccountID:    caregiverID,
		Role:         string(account.Role),
		Action:       string(domain.ActionLink),
		ResourceType: "patient",
		ResourceID:   patientID.String(),
	})

	return nil
}

// GetLinkedPatient returns the caregiver's linked patient id, if any.
func (s *DirectoryService) GetLinkedPatient(ctx context.Context, caregiverID uuid.UUID) (uuid.UUID, bool, error) {
	account, err := s.accounts.GetByID(ctx, caregiverID)
	if err != nil {
		return uuid.Nil, false, err
	}
	if account.LinkedPatientID == nil {
		return uuid.Nil, false, nil
	}
	return *account.LinkedPatientID, true, nil
}

func claimsFor(a *domain.Account) *domain.Claims {
	return &domain.Claims{
		AccountID:       a.ID,
		Email:           a.Email,
		Role:            a.Role,
		LinkedPatientID: a.LinkedPatientID,
	}
}

func validatePasswordStrength(password string) error {
	if len(password) < 12 {
		return errors.New("password must be at least 12 characters")
	}
	return nil
}
