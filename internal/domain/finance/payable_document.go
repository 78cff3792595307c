package finance

import (
	"time"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayableLine (CxpDocumentoDetalle) attributes one consumption to a payable
// document with its gross/commission/net split
type PayableLine struct {
	ID            uuid.UUID
	DocumentID    uuid.UUID
	ConsumptionID uuid.UUID
	ClientID      uuid.UUID
	OccurredAt    time.Time
	Amount        decimal.Decimal
	Commission    decimal.Decimal
	NetAmount     decimal.Decimal
}

// PayableDocument (CxpDocumento) is what the program owes a merchant for one
// period. TotalAmount, and so the outstanding balance, is the net amount.
type PayableDocument struct {
	shared.BaseAggregateRoot
	DocumentBalance
	DocumentNumber    string
	MerchantID        uuid.UUID
	Period            valueobject.Period
	IssueDate         time.Time
	DueDate           time.Time
	GrossAmount       decimal.Decimal
	CommissionAmount  decimal.Decimal
	NetAmount         decimal.Decimal
	CommissionPercent decimal.Decimal // Merchant rate applied to lines without a recorded commission
	Lines             []PayableLine
}

// NewPayableDocument creates a PENDING document from a consolidation summary
func NewPayableDocument(number string, summary *PayableSummary, issueDate time.Time, dueDays int) (*PayableDocument, error) {
	if summary == nil || len(summary.Lines) == 0 {
		return nil, ErrNothingToConsolidate
	}
	if number == "" {
		return nil, ErrInvalidNumber.WithMessage("Document number cannot be empty")
	}
	if dueDays < 0 {
		return nil, ErrInvalidDueDays
	}

	doc := &PayableDocument{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DocumentBalance:   newDocumentBalance(summary.NetAmount),
		DocumentNumber:    number,
		MerchantID:        summary.MerchantID,
		Period:            summary.Period,
		IssueDate:         issueDate,
		DueDate:           issueDate.AddDate(0, 0, dueDays),
		GrossAmount:       summary.GrossAmount,
		CommissionAmount:  summary.CommissionAmount,
		NetAmount:         summary.NetAmount,
		CommissionPercent: summary.CommissionPercent,
		Lines:             make([]PayableLine, len(summary.Lines)),
	}
	for i, line := range summary.Lines {
		line.ID = uuid.New()
		line.DocumentID = doc.ID
		doc.Lines[i] = line
	}

	doc.AddDomainEvent(NewPayableConsolidatedEvent(doc))
	return doc, nil
}

// ApplyPayment registers a payment to the merchant and moves the status forward
func (d *PayableDocument) ApplyPayment(paymentNumber string, amount decimal.Decimal, method PaymentMethod, details PaymentDetails, paidAt time.Time) (*Payment, error) {
	payment, err := applyPayment(d, paymentNumber, amount, method, details, paidAt)
	if err != nil {
		return nil, err
	}
	d.Touch(time.Now())
	d.IncrementVersion()
	return payment, nil
}

func (d *PayableDocument) balance() *DocumentBalance { return &d.DocumentBalance }
func (d *PayableDocument) kind() DocumentKind        { return DocumentKindPayable }
func (d *PayableDocument) number() string            { return d.DocumentNumber }
