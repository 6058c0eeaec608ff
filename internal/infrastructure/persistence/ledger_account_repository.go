package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openbooks/backend/internal/domain/accounting"
	"github.com/openbooks/backend/internal/domain/shared"
)

// GormLedgerAccountRepository implements LedgerAccountRepository using GORM
type GormLedgerAccountRepository struct {
	db *gorm.DB
}

// NewGormLedgerAccountRepository creates a new GormLedgerAccountRepository
func NewGormLedgerAccountRepository(db *gorm.DB) *GormLedgerAccountRepository {
	return &GormLedgerAccountRepository{db: db}
}

// FindByID finds an account by its ID
func (r *GormLedgerAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*accounting.LedgerAccount, error) {
	var account accounting.LedgerAccount
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindByCode finds an account by its chart-of-accounts code
func (r *GormLedgerAccountRepository) FindByCode(ctx context.Context, code string) (*accounting.LedgerAccount, error) {
	var account accounting.LedgerAccount
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindAll finds accounts matching the filter
func (r *GormLedgerAccountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]accounting.LedgerAccount, error) {
	var accounts []accounting.LedgerAccount
	query := r.db.WithContext(ctx).Model(&accounting.LedgerAccount{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("code LIKE ? OR name LIKE ?", pattern, pattern)
	}
	if err := applyFilter(query, filter).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Save creates or updates an account
func (r *GormLedgerAccountRepository) Save(ctx context.Context, account *accounting.LedgerAccount) error {
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

var _ accounting.LedgerAccountRepository = (*GormLedgerAccountRepository)(nil)
