package finance

import (
	"context"
	"time"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/partner"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockEmployerRepository struct {
	mock.Mock
}

func (m *MockEmployerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Employer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Employer), args.Error(1)
}

func (m *MockEmployerRepository) Save(ctx context.Context, employer *partner.Employer) error {
	args := m.Called(ctx, employer)
	return args.Error(0)
}

type MockMerchantRepository struct {
	mock.Mock
}

func (m *MockMerchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Merchant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Merchant), args.Error(1)
}

func (m *MockMerchantRepository) Save(ctx context.Context, merchant *partner.Merchant) error {
	args := m.Called(ctx, merchant)
	return args.Error(0)
}

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Client), args.Error(1)
}

func (m *MockClientRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*credit.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Client), args.Error(1)
}

func (m *MockClientRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*credit.Client, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credit.Client), args.Error(1)
}

func (m *MockClientRepository) Save(ctx context.Context, client *credit.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *MockClientRepository) SaveWithLock(ctx context.Context, client *credit.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

type MockConsumptionRepository struct {
	mock.Mock
}

func (m *MockConsumptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.Consumption, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Consumption), args.Error(1)
}

func (m *MockConsumptionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*credit.Consumption, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credit.Consumption), args.Error(1)
}

func (m *MockConsumptionRepository) Create(ctx context.Context, consumption *credit.Consumption) error {
	args := m.Called(ctx, consumption)
	return args.Error(0)
}

func (m *MockConsumptionRepository) SaveWithLock(ctx context.Context, consumption *credit.Consumption) error {
	args := m.Called(ctx, consumption)
	return args.Error(0)
}

func (m *MockConsumptionRepository) FindUnconsolidated(ctx context.Context, filter credit.UnconsolidatedFilter) ([]credit.Consumption, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]credit.Consumption), args.Error(1)
}

func (m *MockConsumptionRepository) IsConsolidated(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockReceivableRepository struct {
	mock.Mock
}

func (m *MockReceivableRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.ReceivableDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ReceivableDocument), args.Error(1)
}

func (m *MockReceivableRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.ReceivableDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ReceivableDocument), args.Error(1)
}

func (m *MockReceivableRepository) FindLines(ctx context.Context, documentID uuid.UUID) ([]finance.ReceivableLine, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.ReceivableLine), args.Error(1)
}

func (m *MockReceivableRepository) ExistsForPeriod(ctx context.Context, employerID uuid.UUID, period valueobject.Period) (bool, error) {
	args := m.Called(ctx, employerID, period)
	return args.Bool(0), args.Error(1)
}

func (m *MockReceivableRepository) Create(ctx context.Context, doc *finance.ReceivableDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockReceivableRepository) SaveWithLock(ctx context.Context, doc *finance.ReceivableDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

type MockPayableRepository struct {
	mock.Mock
}

func (m *MockPayableRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PayableDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PayableDocument), args.Error(1)
}

func (m *MockPayableRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.PayableDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PayableDocument), args.Error(1)
}

func (m *MockPayableRepository) FindLines(ctx context.Context, documentID uuid.UUID) ([]finance.PayableLine, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.PayableLine), args.Error(1)
}

func (m *MockPayableRepository) ExistsForPeriod(ctx context.Context, merchantID uuid.UUID, period valueobject.Period) (bool, error) {
	args := m.Called(ctx, merchantID, period)
	return args.Bool(0), args.Error(1)
}

func (m *MockPayableRepository) Create(ctx context.Context, doc *finance.PayableDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockPayableRepository) SaveWithLock(ctx context.Context, doc *finance.PayableDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) FindByDocument(ctx context.Context, kind finance.DocumentKind, documentID uuid.UUID) ([]finance.Payment, error) {
	args := m.Called(ctx, kind, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumByDocument(ctx context.Context, kind finance.DocumentKind, documentID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, kind, documentID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) ExistsByIdempotencyKey(ctx context.Context, kind finance.DocumentKind, key string) (bool, error) {
	args := m.Called(ctx, kind, key)
	return args.Bool(0), args.Error(1)
}

type MockNumberRepository struct {
	mock.Mock
}

func (m *MockNumberRepository) LockSequence(ctx context.Context, prefix string, year int) error {
	args := m.Called(ctx, prefix, year)
	return args.Error(0)
}

func (m *MockNumberRepository) LastNumber(ctx context.Context, prefix string, year int) (string, error) {
	args := m.Called(ctx, prefix, year)
	return args.String(0), args.Error(1)
}

type MockScopeLocker struct {
	mock.Mock
}

func (m *MockScopeLocker) LockScope(ctx context.Context, kind finance.DocumentKind, scopeID uuid.UUID) error {
	args := m.Called(ctx, kind, scopeID)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	return nil
}

// =============================================================================
// Test Helpers
// =============================================================================

type testRepos struct {
	employers    *MockEmployerRepository
	merchants    *MockMerchantRepository
	clients      *MockClientRepository
	consumptions *MockConsumptionRepository
	receivables  *MockReceivableRepository
	payables     *MockPayableRepository
	payments     *MockPaymentRepository
	numbers      *MockNumberRepository
	locker       *MockScopeLocker
}

func newTestRepos() *testRepos {
	return &testRepos{
		employers:    new(MockEmployerRepository),
		merchants:    new(MockMerchantRepository),
		clients:      new(MockClientRepository),
		consumptions: new(MockConsumptionRepository),
		receivables:  new(MockReceivableRepository),
		payables:     new(MockPayableRepository),
		payments:     new(MockPaymentRepository),
		numbers:      new(MockNumberRepository),
		locker:       new(MockScopeLocker),
	}
}

func (r *testRepos) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(&Repositories{
		Employers:    r.employers,
		Merchants:    r.merchants,
		Clients:      r.clients,
		Consumptions: r.consumptions,
		Receivables:  r.receivables,
		Payables:     r.payables,
		Payments:     r.payments,
		Numbers:      r.numbers,
		Locker:       r.locker,
	})
}

func (r *testRepos) assertExpectations(t mock.TestingT) {
	r.employers.AssertExpectations(t)
	r.merchants.AssertExpectations(t)
	r.clients.AssertExpectations(t)
	r.consumptions.AssertExpectations(t)
	r.receivables.AssertExpectations(t)
	r.payables.AssertExpectations(t)
	r.payments.AssertExpectations(t)
	r.numbers.AssertExpectations(t)
	r.locker.AssertExpectations(t)
}

var fixedNow = time.Date(2024, time.February, 5, 10, 0, 0, 0, time.UTC)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Clock = func() time.Time { return fixedNow }
	return opts
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func january() valueobject.Period {
	return valueobject.Period{
		From: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestClient(employerID uuid.UUID, limit, balance string) *credit.Client {
	c, err := credit.NewClient(employerID, "Ana Torres", dec(limit))
	if err != nil {
		panic(err)
	}
	c.Balance = dec(balance)
	return c
}

func newTestConsumption(client *credit.Client, merchantID uuid.UUID, amount string, at time.Time) credit.Consumption {
	c, err := credit.NewConsumption(client, merchantID, dec(amount), at, uuid.New())
	if err != nil {
		panic(err)
	}
	c.PullDomainEvents()
	return *c
}
