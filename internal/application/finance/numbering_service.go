package finance

import (
	"context"
	"fmt"

	"github.com/erp/credit-ledger/internal/domain/finance"
)

// NumberingService allocates document and payment numbers. It must run with
// repositories bound to the transaction that inserts the numbered row, so a
// rollback also releases the number.
type NumberingService struct{}

// NewNumberingService creates a NumberingService
func NewNumberingService() *NumberingService {
	return &NumberingService{}
}

// NextNumber returns the next "{prefix}-{year}-{seq:05d}" number. The
// sequence continues from the highest stored number, so gaps are tolerated.
func (s *NumberingService) NextNumber(ctx context.Context, repo finance.DocumentNumberRepository, prefix string, year int) (string, error) {
	if !finance.IsKnownPrefix(prefix) {
		return "", finance.ErrInvalidNumber.WithMessage("Unknown numbering prefix: " + prefix)
	}
	if err := repo.LockSequence(ctx, prefix, year); err != nil {
		return "", fmt.Errorf("failed to lock number sequence %s-%d: %w", prefix, year, err)
	}
	last, err := repo.LastNumber(ctx, prefix, year)
	if err != nil {
		return "", fmt.Errorf("failed to read last number of %s-%d: %w", prefix, year, err)
	}
	return finance.NextDocumentNumber(prefix, year, last)
}
