package persistence

import (
	"context"
	"fmt"

	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// numberColumns maps each numbering prefix to the table and column holding its sequence
var numberColumns = map[string]struct{ table, column string }{
	finance.PrefixReceivable:        {"cxc_documentos", "numero_documento"},
	finance.PrefixPayable:           {"cxp_documentos", "numero_documento"},
	finance.PrefixReceivablePayment: {"cxc_pagos", "numero_pago"},
	finance.PrefixPayablePayment:    {"cxp_pagos", "numero_pago"},
}

// GormDocumentNumberRepository reads number sequences from the document and
// payment tables. There is no separate counter table: the highest stored
// number of a (prefix, year) is the last one issued.
type GormDocumentNumberRepository struct {
	db *gorm.DB
}

// NewGormDocumentNumberRepository creates a new GormDocumentNumberRepository
func NewGormDocumentNumberRepository(db *gorm.DB) *GormDocumentNumberRepository {
	return &GormDocumentNumberRepository{db: db}
}

// LockSequence takes a transaction-scoped advisory lock on (prefix, year)
func (r *GormDocumentNumberRepository) LockSequence(ctx context.Context, prefix string, year int) error {
	return advisoryXactLock(ctx, r.db, fmt.Sprintf("ledger:seq:%s:%d", prefix, year))
}

// LastNumber returns the highest number of the (prefix, year) sequence.
// Longer numbers sort first so CXC-2024-100000 follows CXC-2024-99999.
func (r *GormDocumentNumberRepository) LastNumber(ctx context.Context, prefix string, year int) (string, error) {
	target, ok := numberColumns[prefix]
	if !ok {
		return "", finance.ErrInvalidNumber.WithMessage("Unknown numbering prefix: " + prefix)
	}

	var numbers []string
	err := r.db.WithContext(ctx).
		Table(target.table).
		Where(target.column+" LIKE ?", finance.NumberPrefix(prefix, year)+"%").
		Order(fmt.Sprintf("LENGTH(%s) DESC, %s DESC", target.column, target.column)).
		Limit(1).
		Pluck(target.column, &numbers).Error
	if err != nil {
		return "", fmt.Errorf("failed to read last %s number: %w", prefix, err)
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

// GormScopeLocker serializes consolidations of one employer or merchant with
// transaction-scoped advisory locks
type GormScopeLocker struct {
	db *gorm.DB
}

// NewGormScopeLocker creates a new GormScopeLocker
func NewGormScopeLocker(db *gorm.DB) *GormScopeLocker {
	return &GormScopeLocker{db: db}
}

// LockScope blocks other consolidations of the same kind and scope until the transaction ends
func (l *GormScopeLocker) LockScope(ctx context.Context, kind finance.DocumentKind, scopeID uuid.UUID) error {
	return advisoryXactLock(ctx, l.db, fmt.Sprintf("ledger:scope:%s:%s", kind, scopeID))
}

var (
	_ finance.DocumentNumberRepository = (*GormDocumentNumberRepository)(nil)
	_ finance.ScopeLocker              = (*GormScopeLocker)(nil)
)
