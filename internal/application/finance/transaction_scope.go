package finance

import (
	"context"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/partner"
)

// TransactionScope provides transactional access to the ledger repositories.
// Every consolidation, payment and balance mutation runs inside one Execute
// call so number allocation, inserts and balance updates commit or roll back
// together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	EmployerRepo() partner.EmployerRepository
	MerchantRepo() partner.MerchantRepository
	ClientRepo() credit.ClientRepository
	ConsumptionRepo() credit.ConsumptionRepository
	ReceivableRepo() finance.ReceivableDocumentRepository
	PayableRepo() finance.PayableDocumentRepository
	PaymentRepo() finance.PaymentRepository
	NumberRepo() finance.DocumentNumberRepository
	ScopeLocker() finance.ScopeLocker
}

// Repositories is a plain bundle of repositories. It implements
// TransactionalRepositories for NoOpTransactionScope.
type Repositories struct {
	Employers    partner.EmployerRepository
	Merchants    partner.MerchantRepository
	Clients      credit.ClientRepository
	Consumptions credit.ConsumptionRepository
	Receivables  finance.ReceivableDocumentRepository
	Payables     finance.PayableDocumentRepository
	Payments     finance.PaymentRepository
	Numbers      finance.DocumentNumberRepository
	Locker       finance.ScopeLocker
}

func (r *Repositories) EmployerRepo() partner.EmployerRepository             { return r.Employers }
func (r *Repositories) MerchantRepo() partner.MerchantRepository             { return r.Merchants }
func (r *Repositories) ClientRepo() credit.ClientRepository                  { return r.Clients }
func (r *Repositories) ConsumptionRepo() credit.ConsumptionRepository        { return r.Consumptions }
func (r *Repositories) ReceivableRepo() finance.ReceivableDocumentRepository { return r.Receivables }
func (r *Repositories) PayableRepo() finance.PayableDocumentRepository       { return r.Payables }
func (r *Repositories) PaymentRepo() finance.PaymentRepository               { return r.Payments }
func (r *Repositories) NumberRepo() finance.DocumentNumberRepository         { return r.Numbers }
func (r *Repositories) ScopeLocker() finance.ScopeLocker                     { return r.Locker }

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with mocked repositories.
type NoOpTransactionScope struct {
	repos *Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(repos *Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*Repositories)(nil)
