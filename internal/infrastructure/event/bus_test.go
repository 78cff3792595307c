package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/credit-ledger/internal/domain/credit"
	"github.com/erp/credit-ledger/internal/domain/finance"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
	Amount string `json:"amount"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Amount:          "100.00",
	}
}

type recordingHandler struct {
	eventTypes []string
	err        error
	panicWith  any

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	payments := &recordingHandler{eventTypes: []string{finance.EventTypePaymentRegistered}}
	consumptions := &recordingHandler{}
	all := &recordingHandler{}

	bus.Subscribe(payments)
	bus.Subscribe(consumptions, credit.EventTypeConsumptionRecorded, credit.EventTypeConsumptionReversed)
	bus.Subscribe(all)

	err := bus.Publish(context.Background(),
		newTestEvent(finance.EventTypePaymentRegistered),
		newTestEvent(credit.EventTypeConsumptionRecorded),
		newTestEvent(credit.EventTypeConsumptionReversed),
		newTestEvent(finance.EventTypeDocumentPaid),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, payments.count())
	assert.Equal(t, 2, consumptions.count())
	assert.Equal(t, 4, all.count())
}

func TestInMemoryEventBus_FailuresDoNotStopDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(nil)

	failing := &recordingHandler{err: errors.New("audit sink down")}
	panicking := &recordingHandler{panicWith: "boom"}
	healthy := &recordingHandler{}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	event := newTestEvent(credit.EventTypeCreditRestored)
	err := bus.Publish(context.Background(), event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit sink down")
	assert.Contains(t, err.Error(), "handler panicked: boom")
	assert.Contains(t, err.Error(), event.EventID().String())
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	typed := &recordingHandler{eventTypes: []string{finance.EventTypeDocumentPaid}}
	wildcard := &recordingHandler{}
	bus.Subscribe(typed)
	bus.Subscribe(wildcard)

	bus.Unsubscribe(typed)
	bus.Unsubscribe(wildcard)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent(finance.EventTypeDocumentPaid)))

	assert.Zero(t, typed.count())
	assert.Zero(t, wildcard.count())
	assert.Empty(t, bus.registry.handlers)
}

func TestHandlerRegistry_OrderSpecificBeforeWildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	specific := &recordingHandler{}
	wildcard := &recordingHandler{}

	registry.Register(wildcard)
	registry.Register(specific, finance.EventTypeReceivableConsolidated)

	handlers := registry.GetHandlers(finance.EventTypeReceivableConsolidated)
	require.Len(t, handlers, 2)
	assert.Same(t, specific, handlers[0])
	assert.Same(t, wildcard, handlers[1])

	assert.Len(t, registry.GetHandlers(finance.EventTypePayableConsolidated), 1)
}
