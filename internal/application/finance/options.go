package finance

import (
	"context"
	"time"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Options holds the ledger rules the services apply
type Options struct {
	// ReversalWindow is how long after a consumption it can be reversed. Default: 24h
	ReversalWindow time.Duration
	// DefaultDueDays is the payment term of a consolidated document when the request has none. Default: 30
	DefaultDueDays int
	// IdempotencyTTL is how long a payment idempotency key is remembered. Default: 24h
	IdempotencyTTL time.Duration
	// Clock returns the current time. Default: time.Now
	Clock func() time.Time
}

// DefaultOptions returns the ledger defaults
func DefaultOptions() Options {
	return Options{
		ReversalWindow: credit.DefaultReversalWindow,
		DefaultDueDays: finance.DefaultDueDays,
		IdempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
		Clock:          time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ReversalWindow <= 0 {
		o.ReversalWindow = d.ReversalWindow
	}
	if o.DefaultDueDays <= 0 {
		o.DefaultDueDays = d.DefaultDueDays
	}
	if o.IdempotencyTTL <= 0 {
		o.IdempotencyTTL = d.IdempotencyTTL
	}
	if o.Clock == nil {
		o.Clock = d.Clock
	}
	return o
}

// publishEvents publishes the pending events of committed aggregates.
// Publishing failures are logged; the ledger change is already durable.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, log *zap.Logger, aggregates ...shared.AggregateRoot) {
	var events []shared.DomainEvent
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		events = append(events, agg.PullDomainEvents()...)
	}
	if len(events) == 0 || publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, log).Warn("Failed to publish domain events",
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}

// notFoundAs replaces a repository not-found error with a specific one
func notFoundAs(err error, specific *shared.DomainError) error {
	if shared.IsNotFound(err) {
		return specific
	}
	return err
}
