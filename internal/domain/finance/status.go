package finance

import (
	"strings"

	"github.com/erp/credit-ledger/internal/domain/shared"
)

// DocumentStatus represents the payment status of a receivable or payable document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "PENDING"    // Nothing paid, outstanding = total
	DocumentStatusPartial    DocumentStatus = "PARTIAL"    // 0 < outstanding < total
	DocumentStatusPaid       DocumentStatus = "PAID"       // Outstanding = 0
	DocumentStatusRefinanced DocumentStatus = "REFINANCED" // Receivable only, set outside the ledger core
)

// IsValid checks if the status is a valid DocumentStatus
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusPartial, DocumentStatusPaid, DocumentStatusRefinanced:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// CanApplyPayment returns true if payments can be applied in this status
func (s DocumentStatus) CanApplyPayment() bool {
	return s == DocumentStatusPending || s == DocumentStatusPartial
}

// Rank orders the payment states along PENDING -> PARTIAL -> PAID.
// REFINANCED is outside the payment progression and ranks -1.
func (s DocumentStatus) Rank() int {
	switch s {
	case DocumentStatusPending:
		return 0
	case DocumentStatusPartial:
		return 1
	case DocumentStatusPaid:
		return 2
	}
	return -1
}

// ParseDocumentStatus maps a stored value to a DocumentStatus
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	status := DocumentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", shared.NewValidationError("INVALID_STATUS", "Unknown document status: "+s)
	}
	return status, nil
}

// DocumentKind distinguishes receivable (CxC) from payable (CxP) documents
type DocumentKind string

const (
	DocumentKindReceivable DocumentKind = "CXC"
	DocumentKindPayable    DocumentKind = "CXP"
)

// IsValid checks if the kind is valid
func (k DocumentKind) IsValid() bool {
	return k == DocumentKindReceivable || k == DocumentKindPayable
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// DocumentPrefix returns the numbering prefix for documents of this kind
func (k DocumentKind) DocumentPrefix() string {
	if k == DocumentKindPayable {
		return PrefixPayable
	}
	return PrefixReceivable
}

// PaymentPrefix returns the numbering prefix for payments against documents of this kind
func (k DocumentKind) PaymentPrefix() string {
	if k == DocumentKindPayable {
		return PrefixPayablePayment
	}
	return PrefixReceivablePayment
}

// ParseDocumentKind accepts "cxc"/"cxp" as well as "receivable"/"payable"
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CXC", "RECEIVABLE":
		return DocumentKindReceivable, nil
	case "CXP", "PAYABLE":
		return DocumentKindPayable, nil
	}
	return "", shared.NewValidationError("INVALID_DOCUMENT_KIND", "Unknown document kind: "+s)
}

// PaymentMethod is how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCheck    PaymentMethod = "CHECK"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodOther    PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCheck, PaymentMethodCard, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// paymentMethodAliases maps the names used by back-office operators to methods
var paymentMethodAliases = map[string]PaymentMethod{
	"CASH":          PaymentMethodCash,
	"EFECTIVO":      PaymentMethodCash,
	"TRANSFER":      PaymentMethodTransfer,
	"TRANSFERENCIA": PaymentMethodTransfer,
	"CHECK":         PaymentMethodCheck,
	"CHEQUE":        PaymentMethodCheck,
	"CARD":          PaymentMethodCard,
	"TARJETA":       PaymentMethodCard,
	"OTHER":         PaymentMethodOther,
	"OTRO":          PaymentMethodOther,
}

// ParsePaymentMethod maps an English or Spanish method name to a PaymentMethod
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	if m, ok := paymentMethodAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", ErrInvalidPaymentMethod.WithMessage("Unknown payment method: " + s)
}
