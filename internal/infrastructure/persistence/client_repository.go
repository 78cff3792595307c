package persistence

import (
	"context"
	"errors"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormClientRepository implements ClientRepository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by its ID
func (r *GormClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Client, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a client and locks its row
func (r *GormClientRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*credit.Client, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormClientRepository) findOne(db *gorm.DB, id uuid.UUID) (*credit.Client, error) {
	var model models.ClientModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate locks the given clients in ID order. Missing IDs are
// silently absent from the result.
func (r *GormClientRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*credit.Client, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var clientModels []models.ClientModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&clientModels).Error; err != nil {
		return nil, err
	}
	clients := make([]*credit.Client, len(clientModels))
	for i := range clientModels {
		clients[i] = clientModels[i].ToDomain()
	}
	return clients, nil
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, client *credit.Client) error {
	return r.db.WithContext(ctx).Save(models.ClientModelFromDomain(client)).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormClientRepository) SaveWithLock(ctx context.Context, client *credit.Client) error {
	model := models.ClientModelFromDomain(client)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit("id", "created_at").
		Where("id = ? AND version = ?", client.ID, client.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ credit.ClientRepository = (*GormClientRepository)(nil)
