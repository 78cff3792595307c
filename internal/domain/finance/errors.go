package finance

import "github.com/erp/credit-ledger/internal/domain/shared"

// Consolidation and payment errors. Match with errors.Is.
var (
	ErrDocumentNotFound     = shared.NewNotFoundError("DOCUMENT_NOT_FOUND", "Document not found")
	ErrEmployerNotFound     = shared.NewNotFoundError("EMPLOYER_NOT_FOUND", "Employer not found")
	ErrMerchantNotFound     = shared.NewNotFoundError("MERCHANT_NOT_FOUND", "Merchant not found")
	ErrDocumentVoided       = shared.NewDomainError("DOCUMENT_VOIDED", "Document is voided")
	ErrAlreadyFullyPaid     = shared.NewDomainError("ALREADY_FULLY_PAID", "Document is already fully paid")
	ErrExceedsOutstanding   = shared.NewDomainError("EXCEEDS_OUTSTANDING", "Payment amount exceeds outstanding amount")
	ErrDuplicatePeriod      = shared.NewDomainError("DUPLICATE_PERIOD", "A document already exists for this scope and period")
	ErrNothingToConsolidate = shared.NewDomainError("NOTHING_TO_CONSOLIDATE", "No unconsolidated consumptions in the period")
	ErrInvalidPaymentMethod = shared.NewValidationError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	ErrInvalidPeriod        = shared.NewValidationError("INVALID_PERIOD", "Period start must be before period end")
	ErrInvalidDueDays       = shared.NewValidationError("INVALID_DUE_DAYS", "Due days cannot be negative")
	ErrInvalidScope         = shared.NewValidationError("INVALID_SCOPE", "Scope ID cannot be empty")
	ErrInvalidNumber        = shared.NewValidationError("INVALID_DOCUMENT_NUMBER", "Document number is malformed")
)
