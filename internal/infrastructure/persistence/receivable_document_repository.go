package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/erp/credit-ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lineBatchSize bounds the rows of one INSERT for detail lines
const lineBatchSize = 500

// GormReceivableDocumentRepository implements ReceivableDocumentRepository using GORM
type GormReceivableDocumentRepository struct {
	db *gorm.DB
}

// NewGormReceivableDocumentRepository creates a new GormReceivableDocumentRepository
func NewGormReceivableDocumentRepository(db *gorm.DB) *GormReceivableDocumentRepository {
	return &GormReceivableDocumentRepository{db: db}
}

// FindByID finds a receivable document with its lines
func (r *GormReceivableDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.ReceivableDocument, error) {
	var model models.ReceivableDocumentModel
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

// FindByIDForUpdate finds a receivable document header and locks its row
func (r *GormReceivableDocumentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.ReceivableDocument, error) {
	var model models.ReceivableDocumentModel
	if err := forUpdate(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindLines returns the detail lines of a receivable document
func (r *GormReceivableDocumentRepository) FindLines(ctx context.Context, documentID uuid.UUID) ([]finance.ReceivableLine, error) {
	var lineModels []models.ReceivableLineModel
	if err := r.db.WithContext(ctx).
		Where("documento_id = ?", documentID).
		Order("fecha ASC, id ASC").
		Find(&lineModels).Error; err != nil {
		return nil, err
	}
	lines := make([]finance.ReceivableLine, len(lineModels))
	for i := range lineModels {
		lines[i] = lineModels[i].ToDomain()
	}
	return lines, nil
}

// ExistsForPeriod checks for a non-void document of the employer with exactly this period
func (r *GormReceivableDocumentRepository) ExistsForPeriod(ctx context.Context, employerID uuid.UUID, period valueobject.Period) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReceivableDocumentModel{}).
		Where("empresa_id = ? AND periodo_desde = ? AND periodo_hasta = ? AND anulado = ?",
			employerID, period.From, period.To, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts the document header and its lines. A unique violation means
// another transaction consolidated the same period first.
func (r *GormReceivableDocumentRepository) Create(ctx context.Context, doc *finance.ReceivableDocument) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(models.ReceivableDocumentModelFromDomain(doc)).Error; err != nil {
		return translateCreateError(err, "failed to create receivable document")
	}
	lines := models.ReceivableLineModelsFromDomain(doc.Lines)
	if len(lines) == 0 {
		return nil
	}
	if err := db.CreateInBatches(lines, lineBatchSize).Error; err != nil {
		return translateCreateError(err, "failed to create receivable lines")
	}
	return nil
}

// SaveWithLock updates the document header with optimistic locking
func (r *GormReceivableDocumentRepository) SaveWithLock(ctx context.Context, doc *finance.ReceivableDocument) error {
	model := models.ReceivableDocumentModelFromDomain(doc)
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

// translateCreateError reports unique violations on document inserts as
// DUPLICATE_PERIOD. Number and line uniqueness are guaranteed by the locks
// taken before the insert, so the period index is the one that can fire.
func translateCreateError(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return finance.ErrDuplicatePeriod
	}
	return fmt.Errorf("%s: %w", msg, err)
}

var _ finance.ReceivableDocumentRepository = (*GormReceivableDocumentRepository)(nil)
