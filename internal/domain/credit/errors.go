package credit

import "github.com/erp/credit-ledger/internal/domain/shared"

// Balance and reversal errors. Match with errors.Is; instances returned by the
// aggregates carry amount-specific messages but share these codes.
var (
	ErrClientNotFound          = shared.NewNotFoundError("CLIENT_NOT_FOUND", "Client not found")
	ErrConsumptionNotFound     = shared.NewNotFoundError("CONSUMPTION_NOT_FOUND", "Consumption not found")
	ErrInsufficientBalance     = shared.NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance available")
	ErrClientInactive          = shared.NewDomainError("CLIENT_INACTIVE", "Client is inactive")
	ErrAlreadyReversed         = shared.NewDomainError("ALREADY_REVERSED", "Consumption was already reversed")
	ErrReversalWindowExpired   = shared.NewDomainError("REVERSAL_WINDOW_EXPIRED", "Consumption can no longer be reversed")
	ErrConsumptionConsolidated = shared.NewDomainError("CONSUMPTION_CONSOLIDATED", "Consumption is attached to a consolidated document")
	ErrClientMismatch          = shared.NewValidationError("CLIENT_MISMATCH", "Consumption does not belong to the client")
	ErrInvalidLimit            = shared.NewValidationError("INVALID_LIMIT", "Credit limit must be a non-negative amount in whole cents")
)

var errSubCentAmount = shared.ErrInvalidAmount.WithMessage("Amount cannot have more than two decimal places")
