package partner

import "github.com/erp/credit-ledger/internal/domain/shared"

var (
	// ErrMerchantInactive is returned when a consumption is recorded at a deactivated merchant
	ErrMerchantInactive = shared.NewDomainError("MERCHANT_INACTIVE", "Merchant is inactive")
)
