package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository over cxc_pagos and cxp_pagos
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create inserts a payment into the table of its document kind. A unique
// violation on a keyed payment is reported as DUPLICATE_REQUEST: payment
// numbers are taken under the sequence lock, so the key index is the one
// that fires.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	if !payment.Kind.IsValid() {
		return fmt.Errorf("unknown document kind %q", payment.Kind)
	}
	err := r.db.WithContext(ctx).
		Table(models.PaymentTable(payment.Kind)).
		Create(models.PaymentModelFromDomain(payment)).Error
	if err != nil && payment.IdempotencyKey != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrDuplicateRequest
	}
	return err
}

// ExistsByIdempotencyKey reports whether a payment of kind carries key
func (r *GormPaymentRepository) ExistsByIdempotencyKey(ctx context.Context, kind finance.DocumentKind, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table(models.PaymentTable(kind)).
		Where("clave_idempotencia = ?", key).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByDocument lists the payments of a document ordered by payment date
func (r *GormPaymentRepository) FindByDocument(ctx context.Context, kind finance.DocumentKind, documentID uuid.UUID) ([]finance.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Table(models.PaymentTable(kind)).
		Where("documento_id = ?", documentID).
		Order("fecha_pago ASC, numero_pago ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]finance.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain(kind)
	}
	return payments, nil
}

// SumByDocument sums the non-void payments of a document
func (r *GormPaymentRepository) SumByDocument(ctx context.Context, kind finance.DocumentKind, documentID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Table(models.PaymentTable(kind)).
		Select("SUM(monto)").
		Where("documento_id = ? AND anulado = ?", documentID, false).
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

var _ finance.PaymentRepository = (*GormPaymentRepository)(nil)
