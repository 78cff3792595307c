package partner

import (
	"strings"
	"time"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var maxCommissionPercent = decimal.NewFromInt(100)

// Merchant (proveedor) accepts program credit at its stores and is paid
// through payable documents, net of the program commission.
type Merchant struct {
	shared.BaseAggregateRoot
	Name              string
	TaxID             string
	CommissionPercent decimal.Decimal // e.g. 2 means 2% of the gross amount
	Active            bool
}

// NewMerchant creates an active merchant with the given commission rate
func NewMerchant(name, taxID string, commissionPercent decimal.Decimal) (*Merchant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "Merchant name cannot be empty")
	}
	if err := validateCommission(commissionPercent); err != nil {
		return nil, err
	}

	return &Merchant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		TaxID:             strings.TrimSpace(taxID),
		CommissionPercent: commissionPercent,
		Active:            true,
	}, nil
}

// SetCommissionPercent changes the live rate. Consolidation reads the rate
// in effect when it runs, not the one in effect when a consumption occurred.
func (m *Merchant) SetCommissionPercent(percent decimal.Decimal) error {
	if err := validateCommission(percent); err != nil {
		return err
	}
	m.CommissionPercent = percent
	m.Touch(time.Now())
	m.IncrementVersion()
	return nil
}

// CommissionFor returns the commission owed on a gross amount at the current rate
func (m *Merchant) CommissionFor(gross decimal.Decimal) decimal.Decimal {
	return valueobject.PercentOf(gross, m.CommissionPercent)
}

func validateCommission(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(maxCommissionPercent) {
		return shared.NewValidationError("INVALID_COMMISSION", "Commission percent must be between 0 and 100")
	}
	return nil
}
