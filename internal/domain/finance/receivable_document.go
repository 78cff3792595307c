package finance

import (
	"fmt"
	"time"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultDueDays is the payment term applied when a consolidation gives none
const DefaultDueDays = 30

// ReceivableLine (CxcDocumentoDetalle) attributes one consumption to a receivable document
type ReceivableLine struct {
	ID            uuid.UUID
	DocumentID    uuid.UUID
	ConsumptionID uuid.UUID
	ClientID      uuid.UUID
	OccurredAt    time.Time
	Amount        decimal.Decimal
}

// ReceivableDocument (CxcDocumento) bills an employer for the consumptions
// of its employees in one period. Lines are immutable once created; only the
// balance changes, through ApplyPayment.
type ReceivableDocument struct {
	shared.BaseAggregateRoot
	DocumentBalance
	DocumentNumber string
	EmployerID     uuid.UUID
	Period         valueobject.Period
	IssueDate      time.Time
	DueDate        time.Time
	EmployeeCount  int
	Lines          []ReceivableLine
}

// NewReceivableDocument creates a PENDING document from a consolidation summary
func NewReceivableDocument(number string, summary *ReceivableSummary, issueDate time.Time, dueDays int) (*ReceivableDocument, error) {
	if summary == nil || len(summary.Lines) == 0 {
		return nil, ErrNothingToConsolidate
	}
	if number == "" {
		return nil, ErrInvalidNumber.WithMessage("Document number cannot be empty")
	}
	if dueDays < 0 {
		return nil, ErrInvalidDueDays
	}

	doc := &ReceivableDocument{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocumentBalance:   newDocumentBalance(summary.GrossAmount),
		DocumentNumber:    number,
		EmployerID:        summary.EmployerID,
		Period:            summary.Period,
		IssueDate:         issueDate,
		DueDate:           issueDate.AddDate(0, 0, dueDays),
		EmployeeCount:     summary.EmployeeCount,
		Lines:             make([]ReceivableLine, len(summary.Lines)),
	}
	for i, line := range summary.Lines {
		line.ID = uuid.New()
		line.DocumentID = doc.ID
		doc.Lines[i] = line
	}

	doc.AddDomainEvent(NewReceivableConsolidatedEvent(doc))
	return doc, nil
}

// ApplyPayment registers a payment and moves the status forward.
// The caller restores client credit when the document becomes PAID.
func (d *ReceivableDocument) ApplyPayment(paymentNumber string, amount decimal.Decimal, method PaymentMethod, details PaymentDetails, paidAt time.Time) (*Payment, error) {
	payment, err := applyPayment(d, paymentNumber, amount, method, details, paidAt)
	if err != nil {
		return nil, err
	}
	d.Touch(time.Now())
	d.IncrementVersion()
	return payment, nil
}

// MarkRefinanced takes an unpaid document out of the payment flow
func (d *ReceivableDocument) MarkRefinanced() error {
	if d.Voided {
		return ErrDocumentVoided
	}
	if !d.Status.CanApplyPayment() {
		return shared.ErrInvalidState.WithMessage(fmt.Sprintf("Cannot refinance document in %s status", d.Status))
	}
	d.Status = DocumentStatusRefinanced
	d.Touch(time.Now())
	d.IncrementVersion()
	return nil
}

// CreditAllocations returns the per-line client shares used to restore credit
func (d *ReceivableDocument) CreditAllocations() []credit.CreditAllocation {
	return ReceivableCreditAllocations(d.Lines)
}

// ReceivableCreditAllocations maps receivable lines to credit allocations
func ReceivableCreditAllocations(lines []ReceivableLine) []credit.CreditAllocation {
	allocations := make([]credit.CreditAllocation, 0, len(lines))
	for _, l := range lines {
		allocations = append(allocations, credit.CreditAllocation{ClientID: l.ClientID, Amount: l.Amount})
	}
	return allocations
}

func (d *ReceivableDocument) balance() *DocumentBalance { return &d.DocumentBalance }
func (d *ReceivableDocument) kind() DocumentKind        { return DocumentKindReceivable }
func (d *ReceivableDocument) number() string            { return d.DocumentNumber }
