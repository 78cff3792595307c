package finance

import (
	"sort"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/partner"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableSummary is the aggregate a receivable consolidation would persist
type ReceivableSummary struct {
	EmployerID    uuid.UUID
	Period        valueobject.Period
	GrossAmount   decimal.Decimal
	EmployeeCount int
	Lines         []ReceivableLine
}

// PayableSummary is the aggregate a payable consolidation would persist
type PayableSummary struct {
	MerchantID        uuid.UUID
	Period            valueobject.Period
	CommissionPercent decimal.Decimal
	GrossAmount       decimal.Decimal
	CommissionAmount  decimal.Decimal
	NetAmount         decimal.Decimal
	ClientCount       int
	Lines             []PayableLine
}

// eligible keeps the consumptions a consolidation may claim: not reversed
// and inside the half-open period. Results are ordered by timestamp.
func eligible(consumptions []credit.Consumption, period valueobject.Period, inScope func(*credit.Consumption) bool) []credit.Consumption {
	selected := make([]credit.Consumption, 0, len(consumptions))
	for i := range consumptions {
		c := &consumptions[i]
		if c.Reversed || !period.Contains(c.OccurredAt) || !inScope(c) {
			continue
		}
		selected = append(selected, *c)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].OccurredAt.Before(selected[j].OccurredAt)
	})
	return selected
}

// SummarizeReceivable aggregates the employer's unconsolidated consumptions.
// Consumptions outside the scope are ignored; an empty selection fails with
// NOTHING_TO_CONSOLIDATE.
func SummarizeReceivable(employerID uuid.UUID, period valueobject.Period, consumptions []credit.Consumption) (*ReceivableSummary, error) {
	if employerID == uuid.Nil {
		return nil, ErrInvalidScope
	}
	selected := eligible(consumptions, period, func(c *credit.Consumption) bool {
		return c.EmployerID == employerID
	})
	if len(selected) == 0 {
		return nil, ErrNothingToConsolidate.WithMessage("No unconsolidated consumptions for employer " + employerID.String() + " in " + period.String())
	}

	summary := &ReceivableSummary{
		EmployerID:  employerID,
		Period:      period,
		GrossAmount: decimal.Zero,
		Lines:       make([]ReceivableLine, 0, len(selected)),
	}
	clients := make(map[uuid.UUID]struct{})
	for _, c := range selected {
		summary.GrossAmount = summary.GrossAmount.Add(c.Amount)
		clients[c.ClientID] = struct{}{}
		summary.Lines = append(summary.Lines, ReceivableLine{
			ConsumptionID: c.ID,
			ClientID:      c.ClientID,
			OccurredAt:    c.OccurredAt,
			Amount:        c.Amount,
		})
	}
	summary.EmployeeCount = len(clients)
	return summary, nil
}

// SummarizePayable aggregates the merchant's unconsolidated consumptions.
// A line keeps the commission recorded at the point of sale when it is
// positive; otherwise it is recomputed from the merchant's current rate.
func SummarizePayable(merchant *partner.Merchant, period valueobject.Period, consumptions []credit.Consumption) (*PayableSummary, error) {
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}
	selected := eligible(consumptions, period, func(c *credit.Consumption) bool {
		return c.MerchantID == merchant.ID
	})
	if len(selected) == 0 {
		return nil, ErrNothingToConsolidate.WithMessage("No unconsolidated consumptions for merchant " + merchant.ID.String() + " in " + period.String())
	}

	summary := &PayableSummary{
		MerchantID:        merchant.ID,
		Period:            period,
		CommissionPercent: merchant.CommissionPercent,
		GrossAmount:       decimal.Zero,
		CommissionAmount:  decimal.Zero,
		NetAmount:         decimal.Zero,
		Lines:             make([]PayableLine, 0, len(selected)),
	}
	clients := make(map[uuid.UUID]struct{})
	for _, c := range selected {
		commission := LineCommission(&c, merchant)
		net := c.Amount.Sub(commission)

		summary.GrossAmount = summary.GrossAmount.Add(c.Amount)
		summary.CommissionAmount = summary.CommissionAmount.Add(commission)
		summary.NetAmount = summary.NetAmount.Add(net)
		clients[c.ClientID] = struct{}{}
		summary.Lines = append(summary.Lines, PayableLine{
			ConsumptionID: c.ID,
			ClientID:      c.ClientID,
			OccurredAt:    c.OccurredAt,
			Amount:        c.Amount,
			Commission:    commission,
			NetAmount:     net,
		})
	}
	summary.ClientCount = len(clients)
	return summary, nil
}

// LineCommission returns the commission for one consumption
func LineCommission(c *credit.Consumption, merchant *partner.Merchant) decimal.Decimal {
	if c.HasRecordedCommission() {
		return valueobject.MinAmount(*c.Commission, c.Amount)
	}
	return merchant.CommissionFor(c.Amount)
}
