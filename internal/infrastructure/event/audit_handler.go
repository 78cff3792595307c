package event

import (
	"context"
	"encoding/json"

	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditHandler writes every committed ledger event to the log with its full
// payload, giving operators a trail of balance and document changes.
type AuditHandler struct {
	logger *zap.Logger
}

// NewAuditHandler creates an audit handler logging under the "audit" name
func NewAuditHandler(log *zap.Logger) *AuditHandler {
	return &AuditHandler{logger: log.Named("audit")}
}

// EventTypes is empty: the audit trail covers all events
func (h *AuditHandler) EventTypes() []string { return nil }

// Handle logs the event
func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	logger.WithLogger(ctx, h.logger).Info("ledger event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.Reflect("payload", json.RawMessage(payload)),
	)
	return nil
}

var _ shared.EventHandler = (*AuditHandler)(nil)
