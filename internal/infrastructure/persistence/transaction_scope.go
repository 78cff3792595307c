package persistence

import (
	"context"

	appfinance "github.com/erp/credit-ledger/internal/application/finance"
	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/partner"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) EmployerRepo() partner.EmployerRepository {
	return NewGormEmployerRepository(r.tx)
}

func (r *gormTransactionalRepositories) MerchantRepo() partner.MerchantRepository {
	return NewGormMerchantRepository(r.tx)
}

func (r *gormTransactionalRepositories) ClientRepo() credit.ClientRepository {
	return NewGormClientRepository(r.tx)
}

func (r *gormTransactionalRepositories) ConsumptionRepo() credit.ConsumptionRepository {
	return NewGormConsumptionRepository(r.tx)
}

func (r *gormTransactionalRepositories) ReceivableRepo() finance.ReceivableDocumentRepository {
	return NewGormReceivableDocumentRepository(r.tx)
}

func (r *gormTransactionalRepositories) PayableRepo() finance.PayableDocumentRepository {
	return NewGormPayableDocumentRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() finance.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) NumberRepo() finance.DocumentNumberRepository {
	return NewGormDocumentNumberRepository(r.tx)
}

func (r *gormTransactionalRepositories) ScopeLocker() finance.ScopeLocker {
	return NewGormScopeLocker(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appfinance.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appfinance.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
