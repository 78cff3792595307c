package finance

import (
	"time"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeReceivableConsolidated = "ReceivableConsolidated"
	EventTypePayableConsolidated    = "PayableConsolidated"
	EventTypePaymentRegistered      = "PaymentRegistered"
	EventTypeDocumentPaid           = "DocumentPaid"
)

// ReceivableConsolidatedEvent is raised when a receivable document is created
type ReceivableConsolidatedEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID       `json:"document_id"`
	DocumentNumber string          `json:"document_number"`
	EmployerID     uuid.UUID       `json:"employer_id"`
	PeriodFrom     time.Time       `json:"period_from"`
	PeriodTo       time.Time       `json:"period_to"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	LineCount      int             `json:"line_count"`
	EmployeeCount  int             `json:"employee_count"`
	DueDate        time.Time       `json:"due_date"`
}

// NewReceivableConsolidatedEvent creates a ReceivableConsolidatedEvent
func NewReceivableConsolidatedEvent(d *ReceivableDocument) *ReceivableConsolidatedEvent {
	return &ReceivableConsolidatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivableConsolidated, "ReceivableDocument", d.ID),
		DocumentID:      d.ID,
		DocumentNumber:  d.DocumentNumber,
		EmployerID:      d.EmployerID,
		PeriodFrom:      d.Period.From,
		PeriodTo:        d.Period.To,
		TotalAmount:     d.TotalAmount,
		LineCount:       len(d.Lines),
		EmployeeCount:   d.EmployeeCount,
		DueDate:         d.DueDate,
	}
}

// PayableConsolidatedEvent is raised when a payable document is created
type PayableConsolidatedEvent struct {
	shared.BaseDomainEvent
	DocumentID       uuid.UUID       `json:"document_id"`
	DocumentNumber   string          `json:"document_number"`
	MerchantID       uuid.UUID       `json:"merchant_id"`
	PeriodFrom       time.Time       `json:"period_from"`
	PeriodTo         time.Time       `json:"period_to"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	LineCount        int             `json:"line_count"`
	DueDate          time.Time       `json:"due_date"`
}

// NewPayableConsolidatedEvent creates a PayableConsolidatedEvent
func NewPayableConsolidatedEvent(d *PayableDocument) *PayableConsolidatedEvent {
	return &PayableConsolidatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePayableConsolidated, "PayableDocument", d.ID),
		DocumentID:       d.ID,
		DocumentNumber:   d.DocumentNumber,
		MerchantID:       d.MerchantID,
		PeriodFrom:       d.Period.From,
		PeriodTo:         d.Period.To,
		GrossAmount:      d.GrossAmount,
		CommissionAmount: d.CommissionAmount,
		NetAmount:        d.NetAmount,
		LineCount:        len(d.Lines),
		DueDate:          d.DueDate,
	}
}

// PaymentRegisteredEvent is raised for every payment applied to a document
type PaymentRegisteredEvent struct {
	shared.BaseDomainEvent
	Kind           DocumentKind    `json:"kind"`
	DocumentID     uuid.UUID       `json:"document_id"`
	DocumentNumber string          `json:"document_number"`
	PaymentID      uuid.UUID       `json:"payment_id"`
	PaymentNumber  string          `json:"payment_number"`
	Amount         decimal.Decimal `json:"amount"`
	Method         PaymentMethod   `json:"method"`
	PreviousStatus DocumentStatus  `json:"previous_status"`
	NewStatus      DocumentStatus  `json:"new_status"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Outstanding    decimal.Decimal `json:"outstanding_amount"`
}

// NewPaymentRegisteredEvent creates a PaymentRegisteredEvent
func NewPaymentRegisteredEvent(kind DocumentKind, documentNumber string, p *Payment, b *DocumentBalance, previous DocumentStatus) *PaymentRegisteredEvent {
	return &PaymentRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRegistered, aggregateType(kind), p.DocumentID),
		Kind:            kind,
		DocumentID:      p.DocumentID,
		DocumentNumber:  documentNumber,
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		Amount:          p.Amount,
		Method:          p.Method,
		PreviousStatus:  previous,
		NewStatus:       b.Status,
		PaidAmount:      b.PaidAmount,
		Outstanding:     b.OutstandingAmount,
	}
}

// DocumentPaidEvent is raised when a document's outstanding amount reaches zero
type DocumentPaidEvent struct {
	shared.BaseDomainEvent
	Kind           DocumentKind    `json:"kind"`
	DocumentID     uuid.UUID       `json:"document_id"`
	DocumentNumber string          `json:"document_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAt         time.Time       `json:"paid_at"`
}

// NewDocumentPaidEvent creates a DocumentPaidEvent
func NewDocumentPaidEvent(kind DocumentKind, documentID uuid.UUID, documentNumber string, b *DocumentBalance) *DocumentPaidEvent {
	paidAt := time.Now()
	if b.PaidAt != nil {
		paidAt = *b.PaidAt
	}
	return &DocumentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentPaid, aggregateType(kind), documentID),
		Kind:            kind,
		DocumentID:      documentID,
		DocumentNumber:  documentNumber,
		TotalAmount:     b.TotalAmount,
		PaidAt:          paidAt,
	}
}

func aggregateType(kind DocumentKind) string {
	if kind == DocumentKindPayable {
		return "PayableDocument"
	}
	return "ReceivableDocument"
}
