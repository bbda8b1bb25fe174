package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/carelinkhq/carelink/internal/domain"
	"github.com/carelinkhq/carelink/internal/service"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ service.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return service.ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) SetLinkedPatient(ctx context.Context, accountID, patientID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", accountID).
		Update("linked_patient_id", patientID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return service.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) RecordLogin(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Update("last_login_at", now).Error
}
