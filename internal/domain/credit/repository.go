package credit

import (
	"context"

	"github.com/erp/credit-ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// LedgerSide identifies which consolidation scan a query refers to.
// Receivable and payable consolidation claim consumptions independently.
type LedgerSide string

const (
	SideReceivable LedgerSide = "CXC"
	SidePayable    LedgerSide = "CXP"
)

// IsValid checks if the side is known
func (s LedgerSide) IsValid() bool {
	return s == SideReceivable || s == SidePayable
}

// UnconsolidatedFilter selects the consumptions a consolidation would claim.
// Exactly one of EmployerID (receivable side) or MerchantID (payable side) is set.
type UnconsolidatedFilter struct {
	Side       LedgerSide
	EmployerID uuid.UUID
	MerchantID uuid.UUID
	Period     valueobject.Period
}

// ClientRepository defines persistence for clients.
// The ForUpdate variants lock the rows until the surrounding transaction ends.
type ClientRepository interface {
	// FindByID finds a client by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)

	// FindByIDForUpdate finds and locks a client
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Client, error)

	// FindByIDsForUpdate finds and locks several clients, in ID order
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*Client, error)

	// Save creates or updates a client
	Save(ctx context.Context, client *Client) error

	// SaveWithLock updates a client if its stored version is the one it was loaded with
	SaveWithLock(ctx context.Context, client *Client) error
}

// ConsumptionRepository defines persistence for consumption records
type ConsumptionRepository interface {
	// FindByID finds a consumption by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Consumption, error)

	// FindByIDForUpdate finds and locks a consumption
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Consumption, error)

	// Create inserts a new consumption
	Create(ctx context.Context, consumption *Consumption) error

	// SaveWithLock updates a consumption with a version check
	SaveWithLock(ctx context.Context, consumption *Consumption) error

	// FindUnconsolidated returns non-reversed consumptions in the period that no
	// detail line on the given side references yet, ordered by timestamp
	FindUnconsolidated(ctx context.Context, filter UnconsolidatedFilter) ([]Consumption, error)

	// IsConsolidated reports whether any receivable or payable detail line references the consumption
	IsConsolidated(ctx context.Context, id uuid.UUID) (bool, error)
}
