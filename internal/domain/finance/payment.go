package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentDetails carries the optional metadata of a payment
type PaymentDetails struct {
	Reference  string
	Bank       string
	Notes      string
	RecordedBy uuid.UUID

	// IdempotencyKey is the caller's request key, unique per payment table
	IdempotencyKey string
}

// Payment (CxcPago / CxpPago) is money received for a receivable or paid out
// for a payable. Payments are immutable once created.
type Payment struct {
	shared.BaseEntity
	Kind          DocumentKind
	DocumentID    uuid.UUID
	PaymentNumber string
	PaidAt        time.Time
	Amount        decimal.Decimal
	Method        PaymentMethod
	Reference     string
	Bank          string
	Notes         string
	RecordedBy    uuid.UUID
	Voided        bool

	// empty when the request carried no key
	IdempotencyKey string
}

func newPayment(kind DocumentKind, documentID uuid.UUID, number string, amount decimal.Decimal, method PaymentMethod, details PaymentDetails, paidAt time.Time) *Payment {
	return &Payment{
		BaseEntity:     shared.NewBaseEntity(),
		Kind:           kind,
		DocumentID:     documentID,
		PaymentNumber:  number,
		PaidAt:         paidAt,
		Amount:         amount,
		Method:         method,
		Reference:      strings.TrimSpace(details.Reference),
		Bank:           strings.TrimSpace(details.Bank),
		Notes:          strings.TrimSpace(details.Notes),
		RecordedBy:     details.RecordedBy,
		IdempotencyKey: strings.TrimSpace(details.IdempotencyKey),
	}
}

// DocumentBalance holds the amounts and payment status shared by receivable
// and payable documents. PaidAmount + OutstandingAmount == TotalAmount holds
// after every successful ApplyPayment.
type DocumentBalance struct {
	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	OutstandingAmount decimal.Decimal
	Status            DocumentStatus
	Voided            bool
	PaidAt            *time.Time
}

func newDocumentBalance(total decimal.Decimal) DocumentBalance {
	b := DocumentBalance{
		TotalAmount:       total,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: total,
		Status:            DocumentStatusPending,
	}
	// a payable whose commission swallowed the whole gross owes nothing
	if total.IsZero() {
		b.Status = DocumentStatusPaid
	}
	return b
}

// CheckPayment validates a payment amount against the document without
// mutating it. Checks run in a fixed order: void, already paid, refinanced,
// amount, outstanding.
func (b *DocumentBalance) CheckPayment(amount decimal.Decimal) error {
	if b.Voided {
		return ErrDocumentVoided
	}
	if b.Status == DocumentStatusPaid {
		return ErrAlreadyFullyPaid
	}
	if !b.Status.CanApplyPayment() {
		return shared.ErrInvalidState.WithMessage(fmt.Sprintf("Cannot apply payment to document in %s status", b.Status))
	}
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount.WithMessage("Payment amount must be positive")
	}
	if !valueobject.IsWholeCents(amount) {
		return shared.ErrInvalidAmount.WithMessage("Payment amount cannot have more than two decimal places")
	}
	if amount.GreaterThan(b.OutstandingAmount) {
		return ErrExceedsOutstanding.WithMessage(fmt.Sprintf(
			"Payment amount %s exceeds outstanding amount %s",
			amount.StringFixed(2), b.OutstandingAmount.StringFixed(2)))
	}
	return nil
}

// IsBalanced reports whether paid + outstanding equals total
func (b *DocumentBalance) IsBalanced() bool {
	return b.PaidAmount.Add(b.OutstandingAmount).Equal(b.TotalAmount)
}

// IsFullyPaid reports whether the document reached PAID
func (b *DocumentBalance) IsFullyPaid() bool {
	return b.Status == DocumentStatusPaid
}

func (b *DocumentBalance) apply(amount decimal.Decimal, now time.Time) {
	b.PaidAmount = b.PaidAmount.Add(amount)
	b.OutstandingAmount = b.OutstandingAmount.Sub(amount)
	if b.OutstandingAmount.IsNegative() {
		b.OutstandingAmount = decimal.Zero
	}

	if b.OutstandingAmount.IsZero() {
		b.Status = DocumentStatusPaid
		b.PaidAt = &now
	} else {
		b.Status = DocumentStatusPartial
	}
}

// paymentTarget is implemented by both document kinds so ApplyPayment has a
// single code path
type paymentTarget interface {
	shared.AggregateRoot
	balance() *DocumentBalance
	kind() DocumentKind
	number() string
}

func applyPayment(doc paymentTarget, paymentNumber string, amount decimal.Decimal, method PaymentMethod, details PaymentDetails, paidAt time.Time) (*Payment, error) {
	b := doc.balance()
	if err := b.CheckPayment(amount); err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, ErrInvalidPaymentMethod
	}
	if paymentNumber == "" {
		return nil, ErrInvalidNumber.WithMessage("Payment number cannot be empty")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	payment := newPayment(doc.kind(), doc.GetID(), paymentNumber, amount, method, details, paidAt)
	previous := b.Status
	b.apply(amount, paidAt)

	doc.AddDomainEvent(NewPaymentRegisteredEvent(doc.kind(), doc.number(), payment, b, previous))
	if b.IsFullyPaid() {
		doc.AddDomainEvent(NewDocumentPaidEvent(doc.kind(), doc.GetID(), doc.number(), b))
	}
	return payment, nil
}
