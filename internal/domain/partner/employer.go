package partner

import (
	"strings"
	"time"

	"github.com/erp/credit-ledger/internal/domain/shared"
)

// Employer (empresa) is a company whose employees draw credit in the program.
// Employers are billed through receivable documents.
type Employer struct {
	shared.BaseAggregateRoot
	Name   string
	TaxID  string
	Active bool
}

// NewEmployer creates an active employer
func NewEmployer(name, taxID string) (*Employer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "Employer name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("INVALID_NAME", "Employer name cannot exceed 200 characters")
	}

	return &Employer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		TaxID:             strings.TrimSpace(taxID),
		Active:            true,
	}, nil
}

// Deactivate stops the employer from being used for new credit lines
func (e *Employer) Deactivate() {
	if !e.Active {
		return
	}
	e.Active = false
	e.Touch(time.Now())
	e.IncrementVersion()
}
