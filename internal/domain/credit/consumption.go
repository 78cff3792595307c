package credit

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultReversalWindow is how long after a consumption it can still be reversed
const DefaultReversalWindow = 24 * time.Hour

// Consumption (consumo) is a single purchase debiting a client's balance.
// EmployerID is copied from the client when the consumption is recorded so
// receivable consolidation does not depend on later client transfers.
type Consumption struct {
	shared.BaseAggregateRoot
	OccurredAt     time.Time
	ClientID       uuid.UUID
	EmployerID     uuid.UUID
	MerchantID     uuid.UUID
	StoreID        *uuid.UUID
	Amount         decimal.Decimal
	Commission     *decimal.Decimal // Commission fixed at the point of sale, if any
	NetAmount      *decimal.Decimal // Amount owed to the merchant, if fixed at the point of sale
	Reversed       bool
	ReversedAt     *time.Time
	ReversedBy     *uuid.UUID
	ReversalReason string
	RegisteredBy   uuid.UUID
}

// NewConsumption creates a consumption for the client at the merchant.
// It does not touch the client balance; see RecordConsumption.
func NewConsumption(client *Client, merchantID uuid.UUID, amount decimal.Decimal, occurredAt time.Time, registeredBy uuid.UUID) (*Consumption, error) {
	if client == nil {
		return nil, ErrClientNotFound
	}
	if merchantID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_MERCHANT", "Merchant ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.ErrInvalidAmount.WithMessage("Consumption amount must be positive")
	}
	if !valueobject.IsWholeCents(amount) {
		return nil, errSubCentAmount
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	c := &Consumption{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OccurredAt:        occurredAt.UTC(),
		ClientID:          client.ID,
		EmployerID:        client.EmployerID,
		MerchantID:        merchantID,
		Amount:            amount,
		RegisteredBy:      registeredBy,
	}
	c.AddDomainEvent(NewConsumptionRecordedEvent(c, client.Balance))
	return c, nil
}

// WithStore sets the store/register where the purchase happened
func (c *Consumption) WithStore(storeID uuid.UUID) *Consumption {
	c.StoreID = &storeID
	return c
}

// WithCommission fixes the commission at the point of sale. The net amount
// is derived from it.
func (c *Consumption) WithCommission(commission decimal.Decimal) *Consumption {
	net := c.Amount.Sub(commission)
	c.Commission = &commission
	c.NetAmount = &net
	return c
}

// HasRecordedCommission reports whether a non-zero commission was fixed at the
// point of sale. Consolidation recomputes the commission otherwise.
func (c *Consumption) HasRecordedCommission() bool {
	return c.Commission != nil && c.Commission.IsPositive()
}

// CanReverse checks the reversal rules without mutating the consumption
func (c *Consumption) CanReverse(now time.Time, window time.Duration) error {
	if c.Reversed {
		return ErrAlreadyReversed
	}
	if window <= 0 {
		window = DefaultReversalWindow
	}
	if now.Sub(c.OccurredAt) > window {
		return ErrReversalWindowExpired.WithMessage(fmt.Sprintf(
			"Consumption from %s can no longer be reversed (window %s)",
			c.OccurredAt.Format(time.RFC3339), window))
	}
	return nil
}

// Reverse marks the consumption reversed. The balance credit is applied by
// ReverseConsumption so both changes happen together.
func (c *Consumption) Reverse(actorID uuid.UUID, reason string, now time.Time, window time.Duration) error {
	if err := c.CanReverse(now, window); err != nil {
		return err
	}
	if actorID == uuid.Nil {
		return shared.NewValidationError("INVALID_ACTOR", "Reversal actor cannot be empty")
	}

	c.Reversed = true
	c.ReversedAt = &now
	c.ReversedBy = &actorID
	c.ReversalReason = strings.TrimSpace(reason)
	c.Touch(now)
	c.IncrementVersion()
	return nil
}
