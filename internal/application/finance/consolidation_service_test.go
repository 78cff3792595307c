package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/partner"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEmployer(t *testing.T) *partner.Employer {
	t.Helper()
	e, err := partner.NewEmployer("Acme SA", "J-123")
	require.NoError(t, err)
	return e
}

func newMerchant(t *testing.T, percent string) *partner.Merchant {
	t.Helper()
	m, err := partner.NewMerchant("Farmacia Central", "J-456", dec(percent))
	require.NoError(t, err)
	return m
}

func januaryRequest(scopeID uuid.UUID) ConsolidateRequest {
	p := january()
	return ConsolidateRequest{ScopeID: scopeID, From: p.From, To: p.To, IssueDate: fixedNow}
}

func TestConsolidateReceivables_CreatesNumberedDocument(t *testing.T) {
	repos := newTestRepos()
	employer := newEmployer(t)
	merchantID := uuid.New()
	c1 := newTestClient(employer.ID, "1000", "1000")
	c2 := newTestClient(employer.ID, "1000", "1000")
	day := time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)
	consumptions := []credit.Consumption{
		newTestConsumption(c1, merchantID, "100.00", day),
		newTestConsumption(c2, merchantID, "250.50", day.Add(time.Hour)),
		newTestConsumption(c1, merchantID, "49.50", day.Add(2*time.Hour)),
	}

	repos.employers.On("FindByID", mock.Anything, employer.ID).Return(employer, nil)
	repos.locker.On("LockScope", mock.Anything, finance.DocumentKindReceivable, employer.ID).Return(nil)
	repos.receivables.On("ExistsForPeriod", mock.Anything, employer.ID, january()).Return(false, nil)
	repos.consumptions.On("FindUnconsolidated", mock.Anything, credit.UnconsolidatedFilter{
		Side:       credit.SideReceivable,
		EmployerID: employer.ID,
		Period:     january(),
	}).Return(consumptions, nil)
	repos.numbers.On("LockSequence", mock.Anything, "CXC", 2024).Return(nil)
	repos.numbers.On("LastNumber", mock.Anything, "CXC", 2024).Return("CXC-2024-00007", nil)
	repos.receivables.On("Create", mock.Anything, mock.MatchedBy(func(doc *finance.ReceivableDocument) bool {
		return doc.DocumentNumber == "CXC-2024-00008" && len(doc.Lines) == 3
	})).Return(nil)

	publisher := new(MockEventPublisher)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == finance.EventTypeReceivableConsolidated
	})).Return(nil)

	svc := NewConsolidationService(repos.scope(), zap.NewNop(), testOptions())
	svc.SetEventPublisher(publisher)

	result, err := svc.ConsolidateReceivables(context.Background(), januaryRequest(employer.ID))
	require.NoError(t, err)

	assert.Equal(t, "CXC-2024-00008", result.DocumentNumber)
	assert.True(t, dec("400.00").Equal(result.TotalAmount))
	assert.Equal(t, 3, result.LineCount)
	assert.Equal(t, 2, result.EmployeeCount)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), result.DueDate)
	repos.assertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestConsolidateReceivables_DuplicatePeriod(t *testing.T) {
	repos := newTestRepos()
	employer := newEmployer(t)

	repos.employers.On("FindByID", mock.Anything, employer.ID).Return(employer, nil)
	repos.locker.On("LockScope", mock.Anything, finance.DocumentKindReceivable, employer.ID).Return(nil)
	repos.receivables.On("ExistsForPeriod", mock.Anything, employer.ID, january()).Return(true, nil)

	svc := NewConsolidationService(repos.scope(), zap.NewNop(), testOptions())
	_, err := svc.ConsolidateReceivables(context.Background(), januaryRequest(employer.ID))

	assert.ErrorIs(t, err, finance.ErrDuplicatePeriod)
	repos.consumptions.AssertNotCalled(t, "FindUnconsolidated", mock.Anything, mock.Anything)
	repos.numbers.AssertNotCalled(t, "LockSequence", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsolidateReceivables_NothingToConsolidate(t *testing.T) {
	repos := newTestRepos()
	employer := newEmployer(t)

	repos.employers.On("FindByID", mock.Anything, employer.ID).Return(employer, nil)
	repos.locker.On("LockScope", mock.Anything, finance.DocumentKindReceivable, employer.ID).Return(nil)
	repos.receivables.On("ExistsForPeriod", mock.Anything, employer.ID, january()).Return(false, nil)
	repos.consumptions.On("FindUnconsolidated", mock.Anything, mock.Anything).Return([]credit.Consumption{}, nil)

	svc := NewConsolidationService(repos.scope(), zap.NewNop(), testOptions())
	_, err := svc.ConsolidateReceivables(context.Background(), januaryRequest(employer.ID))

	assert.ErrorIs(t, err, finance.ErrNothingToConsolidate)
	repos.numbers.AssertNotCalled(t, "LockSequence", mock.Anything, mock.Anything, mock.Anything)
	repos.receivables.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConsolidateReceivables_EmployerNotFound(t *testing.T) {
	repos := newTestRepos()
	id := uuid.New()
	repos.employers.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	svc := NewConsolidationService(repos.scope(), zap.NewNop(), testOptions())
	_, err := svc.ConsolidateReceivables(context.Background(), januaryRequest(id))

	assert.ErrorIs(t, err, finance.ErrEmployerNotFound)
	assert.True(t, shared.IsNotFound(err))
}

func TestConsolidate_ValidatesRequest(t *testing.T) {
	p := january()
	negative := -1

	tests := []struct {
		name    string
		req     ConsolidateRequest
		wantErr error
	}{
		{"missing scope", ConsolidateRequest{From: p.From, To: p.To}, shared.ErrInvalidInput},
		{"inverted period", ConsolidateRequest{ScopeID: uuid.New(), From: p.To, To: p.From}, shared.ErrInvalidInput},
		{"empty period", ConsolidateRequest{ScopeID: uuid.New(), From: p.From, To: p.From}, shared.ErrInvalidInput},
		{"negative due days", ConsolidateRequest{ScopeID: uuid.New(), From: p.From, To: p.To, DueDays: &negative}, shared.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repos := newTestRepos()
			svc := NewConsolidationService(repos.scope(), zap.NewNop(), testOptions())

			_, err := svc.ConsolidateReceivables(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, shared.IsValidation(err))

			_, err = svc.ConsolidatePayables(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			repos.assertExpectations(t)
		})
	}
}

func TestConsolidatePayables_CommissionAndNet(t *testing.T) {
	repos := newTestRepos()
	merchant := newMerchant(t, "2")
	client := newTestClient(uuid.New(), "1000", "1000")
	day := time.Date(2024, time.January, 20, 9, 0, 0, 0, time.UTC)
	consumptions := []credit.Consumption{
		newTestConsumption(client, merchant.ID, "100", day),
		newTestConsumption(client, merchant.ID, "200", day.Add(time.Minute)),
		newTestConsumption(client, merchant.ID, "300", day.Add(2*time.Minute)),
	}
	zero := 0

	repos.merchants.On("FindByID", mock.Anything, merchant.ID).Return(merchant, nil)
	repos.locker.On("LockScope", mock.Anything, finance.DocumentKindPayable, merchant.ID).Return(nil)
	repos.payables.On("ExistsForPeriod", mock.Anything, merchant.ID, january()).Return(false, nil)
	repos.consumptions.On("FindUnconsolidated", mock.Anything, credit.UnconsolidatedFilter{
		Side:       credit.SidePayable,
		MerchantID: merchant.ID,
		Period:     january(),
	}).Return(consumptions, nil)
	repos.numbers.On("LockSequence", mock.Anything, "CXP", 2024).Return(nil)
	repos.numbers.On("LastNumber", mock.Anything, "CXP", 2024).Return("", nil)
	repos.payables.On("Create", mock.Anything, mock.AnythingOfType("*finance.PayableDocument")).Return(nil)

	svc := NewConsolidationService(repos.scope(), zap.NewNop(), testOptions())
	req := januaryRequest(merchant.ID)
	req.DueDays = &zero

	result, err := svc.ConsolidatePayables(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "CXP-2024-00001", result.DocumentNumber)
	assert.True(t, dec("600").Equal(result.GrossAmount))
	assert.True(t, dec("12.00").Equal(result.CommissionAmount))
	assert.True(t, dec("588.00").Equal(result.TotalAmount))
	assert.Equal(t, 3, result.LineCount)
	assert.Equal(t, 1, result.EmployeeCount)
	assert.Equal(t, fixedNow, result.DueDate)
	repos.assertExpectations(t)
}

func TestConsolidatePayables_StorageErrorIsSurfaced(t *testing.T) {
	repos := newTestRepos()
	merchant := newMerchant(t, "2")
	client := newTestClient(uuid.New(), "1000", "1000")
	dbErr := errors.New("connection reset")

	repos.merchants.On("FindByID", mock.Anything, merchant.ID).Return(merchant, nil)
	repos.locker.On("LockScope", mock.Anything, finance.DocumentKindPayable, merchant.ID).Return(nil)
	repos.payables.On("ExistsForPeriod", mock.Anything, merchant.ID, january()).Return(false, nil)
	repos.consumptions.On("FindUnconsolidated", mock.Anything, mock.Anything).Return([]credit.Consumption{
		newTestConsumption(client, merchant.ID, "50", time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)),
	}, nil)
	repos.numbers.On("LockSequence", mock.Anything, "CXP", 2024).Return(nil)
	repos.numbers.On("LastNumber", mock.Anything, "CXP", 2024).Return("CXP-2024-00002", nil)
	repos.payables.On("Create", mock.Anything, mock.Anything).Return(dbErr)

	publisher := new(MockEventPublisher)
	svc := NewConsolidationService(repos.scope(), zap.NewNop(), testOptions())
	svc.SetEventPublisher(publisher)

	_, err := svc.ConsolidatePayables(context.Background(), januaryRequest(merchant.ID))
	assert.ErrorIs(t, err, dbErr)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestPreviewReceivables_DoesNotNumberOrPersist(t *testing.T) {
	repos := newTestRepos()
	employer := newEmployer(t)
	client := newTestClient(employer.ID, "1000", "1000")

	repos.employers.On("FindByID", mock.Anything, employer.ID).Return(employer, nil)
	repos.receivables.On("ExistsForPeriod", mock.Anything, employer.ID, january()).Return(false, nil)
	repos.consumptions.On("FindUnconsolidated", mock.Anything, mock.Anything).Return([]credit.Consumption{
		newTestConsumption(client, uuid.New(), "75.25", time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC)),
	}, nil)

	svc := NewConsolidationService(repos.scope(), zap.NewNop(), testOptions())
	result, err := svc.PreviewReceivables(context.Background(), januaryRequest(employer.ID))
	require.NoError(t, err)

	assert.Empty(t, result.DocumentNumber)
	assert.Equal(t, uuid.Nil, result.DocumentID)
	assert.True(t, dec("75.25").Equal(result.TotalAmount))
	assert.Equal(t, 1, result.LineCount)
	repos.assertExpectations(t)
	repos.locker.AssertNotCalled(t, "LockScope", mock.Anything, mock.Anything, mock.Anything)
}

func TestPreviewPayables_ReportsDuplicatePeriod(t *testing.T) {
	repos := newTestRepos()
	merchant := newMerchant(t, "3")

	repos.merchants.On("FindByID", mock.Anything, merchant.ID).Return(merchant, nil)
	repos.payables.On("ExistsForPeriod", mock.Anything, merchant.ID, january()).Return(true, nil)

	svc := NewConsolidationService(repos.scope(), zap.NewNop(), testOptions())
	_, err := svc.PreviewPayables(context.Background(), januaryRequest(merchant.ID))

	assert.ErrorIs(t, err, finance.ErrDuplicatePeriod)
}

func TestNumberingService_NextNumber(t *testing.T) {
	numbers := new(MockNumberRepository)
	numbers.On("LockSequence", mock.Anything, "PCXC", 2025).Return(nil)
	numbers.On("LastNumber", mock.Anything, "PCXC", 2025).Return("PCXC-2025-00041", nil)

	number, err := NewNumberingService().NextNumber(context.Background(), numbers, "PCXC", 2025)
	require.NoError(t, err)
	assert.Equal(t, "PCXC-2025-00042", number)
	numbers.AssertExpectations(t)
}

func TestNumberingService_UnknownPrefix(t *testing.T) {
	numbers := new(MockNumberRepository)

	_, err := NewNumberingService().NextNumber(context.Background(), numbers, "INV", 2025)
	assert.ErrorIs(t, err, finance.ErrInvalidNumber)
	numbers.AssertNotCalled(t, "LockSequence", mock.Anything, mock.Anything, mock.Anything)
}
