package credit

import (
	"time"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeConsumptionRecorded = "ConsumptionRecorded"
	EventTypeConsumptionReversed = "ConsumptionReversed"
	EventTypeCreditRestored      = "CreditRestored"
)

// ConsumptionRecordedEvent is raised when a purchase debits a client
type ConsumptionRecordedEvent struct {
	shared.BaseDomainEvent
	ConsumptionID uuid.UUID       `json:"consumption_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	MerchantID    uuid.UUID       `json:"merchant_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ConsumedAt    time.Time       `json:"consumed_at"`
}

// NewConsumptionRecordedEvent creates a ConsumptionRecordedEvent
func NewConsumptionRecordedEvent(c *Consumption, balanceAfter decimal.Decimal) *ConsumptionRecordedEvent {
	return &ConsumptionRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConsumptionRecorded, "Consumption", c.ID),
		ConsumptionID:   c.ID,
		ClientID:        c.ClientID,
		MerchantID:      c.MerchantID,
		Amount:          c.Amount,
		BalanceAfter:    balanceAfter,
		ConsumedAt:      c.OccurredAt,
	}
}

// ConsumptionReversedEvent is raised when a consumption is reversed
type ConsumptionReversedEvent struct {
	shared.BaseDomainEvent
	ConsumptionID uuid.UUID       `json:"consumption_id"`
	ClientID      uuid.UUID       `json:"client_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ReversedBy    uuid.UUID       `json:"reversed_by"`
	Reason        string          `json:"reason,omitempty"`
}

// NewConsumptionReversedEvent creates a ConsumptionReversedEvent
func NewConsumptionReversedEvent(c *Consumption, before, after decimal.Decimal) *ConsumptionReversedEvent {
	e := &ConsumptionReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConsumptionReversed, "Consumption", c.ID),
		ConsumptionID:   c.ID,
		ClientID:        c.ClientID,
		Amount:          c.Amount,
		BalanceBefore:   before,
		BalanceAfter:    after,
		Reason:          c.ReversalReason,
	}
	if c.ReversedBy != nil {
		e.ReversedBy = *c.ReversedBy
	}
	return e
}

// CreditRestoredEvent is raised when a paid receivable gives credit back to a client
type CreditRestoredEvent struct {
	shared.BaseDomainEvent
	ClientID      uuid.UUID       `json:"client_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ExceedsLimit  bool            `json:"exceeds_limit"`
}

// NewCreditRestoredEvent creates a CreditRestoredEvent
func NewCreditRestoredEvent(c *Client, amount, before decimal.Decimal) *CreditRestoredEvent {
	return &CreditRestoredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditRestored, "Client", c.ID),
		ClientID:        c.ID,
		Amount:          amount,
		BalanceBefore:   before,
		BalanceAfter:    c.Balance,
		ExceedsLimit:    c.ExceedsOriginalLimit(),
	}
}
