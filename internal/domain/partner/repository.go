package partner

import (
	"context"

	"github.com/google/uuid"
)

// EmployerRepository defines persistence for employers
type EmployerRepository interface {
	// FindByID finds an employer by ID, returning a not-found error when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Employer, error)

	// Save creates or updates an employer
	Save(ctx context.Context, employer *Employer) error
}

// MerchantRepository defines persistence for merchants
type MerchantRepository interface {
	// FindByID finds a merchant by ID, returning a not-found error when absent
	FindByID(ctx context.Context, id uuid.UUID) (*Merchant, error)

	// Save creates or updates a merchant
	Save(ctx context.Context, merchant *Merchant) error
}
