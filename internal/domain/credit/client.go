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

// Client (cliente) is an employee holding a revolving credit line.
//
// OriginalLimit is the line granted at onboarding (SaldoOriginal); Balance is
// what the client can still spend (Saldo). Consumption and reversal keep
// 0 <= Balance <= OriginalLimit. Balance is only changed through the methods
// below.
type Client struct {
	shared.BaseAggregateRoot
	EmployerID    uuid.UUID
	Name          string
	OriginalLimit decimal.Decimal
	Balance       decimal.Decimal
	Active        bool
}

// NewClient creates an active client whose balance starts at the full limit
func NewClient(employerID uuid.UUID, name string, limit decimal.Decimal) (*Client, error) {
	if employerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_EMPLOYER", "Employer ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "Client name cannot be empty")
	}
	if limit.IsNegative() || !valueobject.IsWholeCents(limit) {
		return nil, ErrInvalidLimit
	}

	return &Client{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		EmployerID:        employerID,
		Name:              name,
		OriginalLimit:     limit,
		Balance:           limit,
		Active:            true,
	}, nil
}

// ApplyConsumption debits a purchase from the available balance
func (c *Client) ApplyConsumption(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount.WithMessage("Consumption amount must be positive")
	}
	if !valueobject.IsWholeCents(amount) {
		return errSubCentAmount
	}
	if !c.Active {
		return ErrClientInactive
	}
	if c.Balance.LessThan(amount) {
		return ErrInsufficientBalance.WithMessage(fmt.Sprintf(
			"Insufficient balance: available %s, required %s",
			c.Balance.StringFixed(2), amount.StringFixed(2)))
	}

	c.Balance = c.Balance.Sub(amount)
	c.touch()
	return nil
}

// ApplyReversal credits a reversed consumption back, never above OriginalLimit.
// The limit may have been lowered since the consumption, so the cap absorbs
// the drift. Returns the amount actually credited.
func (c *Client) ApplyReversal(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, shared.ErrInvalidAmount.WithMessage("Reversal amount must be positive")
	}

	before := c.Balance
	c.Balance = valueobject.MinAmount(c.Balance.Add(amount), c.OriginalLimit)
	c.touch()
	return c.Balance.Sub(before), nil
}

// RestoreCredit adds back credit released by a fully paid receivable.
// Unlike ApplyReversal it is not capped by OriginalLimit.
func (c *Client) RestoreCredit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.ErrInvalidAmount.WithMessage("Restored amount must be positive")
	}

	c.Balance = c.Balance.Add(amount)
	c.touch()
	return nil
}

// ExceedsOriginalLimit reports whether the balance is above the granted line.
// Only RestoreCredit can produce this state, when the limit was lowered after
// the restored consumptions happened.
func (c *Client) ExceedsOriginalLimit() bool {
	return c.Balance.GreaterThan(c.OriginalLimit)
}

// UsedCredit returns how much of the line is currently drawn
func (c *Client) UsedCredit() decimal.Decimal {
	return valueobject.MaxAmount(c.OriginalLimit.Sub(c.Balance), decimal.Zero)
}

// Deactivate blocks new consumptions; clients are never deleted
func (c *Client) Deactivate() {
	if !c.Active {
		return
	}
	c.Active = false
	c.touch()
}

func (c *Client) touch() {
	c.Touch(time.Now())
	c.IncrementVersion()
}
