package credit

import (
	"bytes"
	"sort"
	"time"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditAllocation is the share of a receivable document attributed to one client
type CreditAllocation struct {
	ClientID uuid.UUID
	Amount   decimal.Decimal
}

// Restoration records the credit given back to one client
type Restoration struct {
	ClientID      uuid.UUID
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	ExceedsLimit  bool
}

// RecordConsumption debits the client and creates the consumption record.
// Nothing is mutated when the debit is rejected.
func RecordConsumption(client *Client, merchantID uuid.UUID, amount decimal.Decimal, occurredAt time.Time, registeredBy uuid.UUID) (*Consumption, error) {
	if client == nil {
		return nil, ErrClientNotFound
	}
	if merchantID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_MERCHANT", "Merchant ID cannot be empty")
	}
	if err := client.ApplyConsumption(amount); err != nil {
		return nil, err
	}
	return NewConsumption(client, merchantID, amount, occurredAt, registeredBy)
}

// ReverseConsumption marks the consumption reversed and credits its amount back
// to the client, capped at the client's original limit. Returns the amount
// actually credited.
func ReverseConsumption(client *Client, consumption *Consumption, actorID uuid.UUID, reason string, now time.Time, window time.Duration) (decimal.Decimal, error) {
	if client == nil {
		return decimal.Zero, ErrClientNotFound
	}
	if consumption == nil {
		return decimal.Zero, ErrConsumptionNotFound
	}
	if consumption.ClientID != client.ID {
		return decimal.Zero, ErrClientMismatch
	}
	if err := consumption.Reverse(actorID, reason, now, window); err != nil {
		return decimal.Zero, err
	}

	before := client.Balance
	credited, err := client.ApplyReversal(consumption.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	consumption.AddDomainEvent(NewConsumptionReversedEvent(consumption, before, client.Balance))
	return credited, nil
}

// SumAllocationsByClient groups allocations by client. Client IDs are returned
// in ascending byte order so callers lock client rows in a stable order.
func SumAllocationsByClient(allocations []CreditAllocation) (map[uuid.UUID]decimal.Decimal, []uuid.UUID) {
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, a := range allocations {
		totals[a.ClientID] = totals[a.ClientID].Add(a.Amount)
	}

	ids := make([]uuid.UUID, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return totals, ids
}

// RestoreCreditForDocument gives every client referenced by a fully paid
// receivable the sum of its attributed amounts back. Restoration is not
// capped by the original limit. All clients must be present in clients;
// nothing is mutated otherwise.
func RestoreCreditForDocument(clients map[uuid.UUID]*Client, allocations []CreditAllocation) ([]Restoration, error) {
	totals, ids := SumAllocationsByClient(allocations)
	for _, id := range ids {
		if _, ok := clients[id]; !ok {
			return nil, ErrClientNotFound.WithMessage("Client " + id.String() + " referenced by the document was not found")
		}
	}

	restorations := make([]Restoration, 0, len(ids))
	for _, id := range ids {
		amount := totals[id]
		if !amount.IsPositive() {
			continue
		}
		client := clients[id]
		before := client.Balance
		if err := client.RestoreCredit(amount); err != nil {
			return nil, err
		}
		client.AddDomainEvent(NewCreditRestoredEvent(client, amount, before))
		restorations = append(restorations, Restoration{
			ClientID:      id,
			Amount:        amount,
			BalanceBefore: before,
			BalanceAfter:  client.Balance,
			ExceedsLimit:  client.ExceedsOriginalLimit(),
		})
	}
	return restorations, nil
}
