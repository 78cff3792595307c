package persistence

import (
	"context"
	"errors"

	"github.com/erp/credit-ledger/internal/domain/partner"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEmployerRepository implements EmployerRepository using GORM
type GormEmployerRepository struct {
	db *gorm.DB
}

// NewGormEmployerRepository creates a new GormEmployerRepository
func NewGormEmployerRepository(db *gorm.DB) *GormEmployerRepository {
	return &GormEmployerRepository{db: db}
}

// FindByID finds an employer by its ID
func (r *GormEmployerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Employer, error) {
	var model models.EmployerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an employer
func (r *GormEmployerRepository) Save(ctx context.Context, employer *partner.Employer) error {
	return r.db.WithContext(ctx).Save(models.EmployerModelFromDomain(employer)).Error
}

// GormMerchantRepository implements MerchantRepository using GORM
type GormMerchantRepository struct {
	db *gorm.DB
}

// NewGormMerchantRepository creates a new GormMerchantRepository
func NewGormMerchantRepository(db *gorm.DB) *GormMerchantRepository {
	return &GormMerchantRepository{db: db}
}

// FindByID finds a merchant by its ID
func (r *GormMerchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Merchant, error) {
	var model models.MerchantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a merchant
func (r *GormMerchantRepository) Save(ctx context.Context, merchant *partner.Merchant) error {
	return r.db.WithContext(ctx).Save(models.MerchantModelFromDomain(merchant)).Error
}

var (
	_ partner.EmployerRepository = (*GormEmployerRepository)(nil)
	_ partner.MerchantRepository = (*GormMerchantRepository)(nil)
)
