package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditHandler_LogsEventWithPayload(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewAuditHandler(zap.New(core)))

	consumption := &credit.Consumption{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OccurredAt:        time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC),
		ClientID:          uuid.New(),
		MerchantID:        uuid.New(),
		Amount:            decimal.RequireFromString("300"),
	}
	event := credit.NewConsumptionRecordedEvent(consumption, decimal.RequireFromString("700"))

	ctx := context.WithValue(context.Background(), logger.ActorIDKey, "operator-7")
	require.NoError(t, bus.Publish(ctx, event))

	entries := recorded.FilterMessage("ledger event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "audit", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	assert.Equal(t, credit.EventTypeConsumptionRecorded, fields["event_type"])
	assert.Equal(t, "Consumption", fields["aggregate_type"])
	assert.Equal(t, consumption.ID.String(), fields["aggregate_id"])
	assert.Equal(t, "operator-7", fields["actor_id"])

	raw, err := json.Marshal(fields["payload"])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "300", payload["amount"])
	assert.Equal(t, "700", payload["balance_after"])
	assert.Equal(t, consumption.ClientID.String(), payload["client_id"])
}

func TestAuditHandler_SubscribesToEverything(t *testing.T) {
	assert.Empty(t, NewAuditHandler(zap.NewNop()).EventTypes())
}
