package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormConsumptionRepository implements ConsumptionRepository using GORM
type GormConsumptionRepository struct {
	db *gorm.DB
}

// NewGormConsumptionRepository creates a new GormConsumptionRepository
func NewGormConsumptionRepository(db *gorm.DB) *GormConsumptionRepository {
	return &GormConsumptionRepository{db: db}
}

// FindByID finds a consumption by its ID
func (r *GormConsumptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Consumption, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a consumption and locks its row
func (r *GormConsumptionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*credit.Consumption, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormConsumptionRepository) findOne(db *gorm.DB, id uuid.UUID) (*credit.Consumption, error) {
	var model models.ConsumptionModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new consumption
func (r *GormConsumptionRepository) Create(ctx context.Context, consumption *credit.Consumption) error {
	return r.db.WithContext(ctx).Create(models.ConsumptionModelFromDomain(consumption)).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormConsumptionRepository) SaveWithLock(ctx context.Context, consumption *credit.Consumption) error {
	model := models.ConsumptionModelFromDomain(consumption)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit("id", "created_at").
		Where("id = ? AND version = ?", consumption.ID, consumption.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindUnconsolidated selects the consumptions a consolidation would claim and
// locks them, so a concurrent reversal waits for the consolidation to finish.
// The period is half-open: fecha >= From AND fecha < To.
func (r *GormConsumptionRepository) FindUnconsolidated(ctx context.Context, filter credit.UnconsolidatedFilter) ([]credit.Consumption, error) {
	query := forUpdate(r.db.WithContext(ctx)).
		Model(&models.ConsumptionModel{}).
		Where("consumos.reversado = ?", false).
		Where("consumos.fecha >= ? AND consumos.fecha < ?", filter.Period.From, filter.Period.To)

	switch filter.Side {
	case credit.SideReceivable:
		query = query.
			Where("consumos.empresa_id = ?", filter.EmployerID).
			Where("NOT EXISTS (SELECT 1 FROM cxc_documento_detalles d WHERE d.consumo_id = consumos.id)")
	case credit.SidePayable:
		query = query.
			Where("consumos.proveedor_id = ?", filter.MerchantID).
			Where("NOT EXISTS (SELECT 1 FROM cxp_documento_detalles d WHERE d.consumo_id = consumos.id)")
	default:
		return nil, fmt.Errorf("unknown ledger side %q", filter.Side)
	}

	var consumptionModels []models.ConsumptionModel
	if err := query.Order("consumos.fecha ASC, consumos.id ASC").Find(&consumptionModels).Error; err != nil {
		return nil, err
	}
	consumptions := make([]credit.Consumption, len(consumptionModels))
	for i := range consumptionModels {
		consumptions[i] = *consumptionModels[i].ToDomain()
	}
	return consumptions, nil
}

// IsConsolidated reports whether a receivable or payable line references the consumption
func (r *GormConsumptionRepository) IsConsolidated(ctx context.Context, id uuid.UUID) (bool, error) {
	for _, model := range []any{&models.ReceivableLineModel{}, &models.PayableLineModel{}} {
		var count int64
		if err := r.db.WithContext(ctx).Model(model).Where("consumo_id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

var _ credit.ConsumptionRepository = (*GormConsumptionRepository)(nil)
