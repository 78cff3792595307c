package persistence

import (
	"context"
	"errors"

	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/erp/credit-ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPayableDocumentRepository implements PayableDocumentRepository using GORM
type GormPayableDocumentRepository struct {
	db *gorm.DB
}

// NewGormPayableDocumentRepository creates a new GormPayableDocumentRepository
func NewGormPayableDocumentRepository(db *gorm.DB) *GormPayableDocumentRepository {
	return &GormPayableDocumentRepository{db: db}
}

// FindByID finds a payable document with its lines
func (r *GormPayableDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PayableDocument, error) {
	var model models.PayableDocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("fecha ASC, id ASC") }).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a payable document header and locks its row
func (r *GormPayableDocumentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.PayableDocument, error) {
	var model models.PayableDocumentModel
	if err := forUpdate(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindLines returns the detail lines of a payable document
func (r *GormPayableDocumentRepository) FindLines(ctx context.Context, documentID uuid.UUID) ([]finance.PayableLine, error) {
	var lineModels []models.PayableLineModel
	if err := r.db.WithContext(ctx).
		Where("documento_id = ?", documentID).
		Order("fecha ASC, id ASC").
		Find(&lineModels).Error; err != nil {
		return nil, err
	}
	lines := make([]finance.PayableLine, len(lineModels))
	for i := range lineModels {
		lines[i] = lineModels[i].ToDomain()
	}
	return lines, nil
}

// ExistsForPeriod checks for a non-void document of the merchant with exactly this period
func (r *GormPayableDocumentRepository) ExistsForPeriod(ctx context.Context, merchantID uuid.UUID, period valueobject.Period) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PayableDocumentModel{}).
		Where("proveedor_id = ? AND periodo_desde = ? AND periodo_hasta = ? AND anulado = ?",
			merchantID, period.From, period.To, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the document header and its lines
func (r *GormPayableDocumentRepository) Create(ctx context.Context, doc *finance.PayableDocument) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(models.PayableDocumentModelFromDomain(doc)).Error; err != nil {
		return translateCreateError(err, "failed to create payable document")
	}
	lines := models.PayableLineModelsFromDomain(doc.Lines)
	if len(lines) == 0 {
		return nil
	}
	if err := db.CreateInBatches(lines, lineBatchSize).Error; err != nil {
		return translateCreateError(err, "failed to create payable lines")
	}
	return nil
}

// SaveWithLock updates the document header with optimistic locking
func (r *GormPayableDocumentRepository) SaveWithLock(ctx context.Context, doc *finance.PayableDocument) error {
	model := models.PayableDocumentModelFromDomain(doc)
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Where("id = ? AND version = ?", doc.ID, doc.Version-1).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ finance.PayableDocumentRepository = (*GormPayableDocumentRepository)(nil)
