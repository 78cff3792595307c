package telemetry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/credit-ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func TestNewBusinessMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, bm)
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, bm)
	assert.Equal(t, "NewBusinessMetrics: meter cannot be nil", err.Error())
}

func TestBusinessMetrics_RecordLedgerActivity(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Meter: meter})
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordConsolidation(ctx, "CXC", decimal.RequireFromString("900.00"))
	bm.RecordPayment(ctx, "CXC", "TRANSFER", telemetry.PaymentStatusSuccess, decimal.RequireFromString("400.00"))
	bm.RecordPayment(ctx, "CXP", "CASH", telemetry.PaymentStatusRejected, decimal.RequireFromString("10.00"))
	bm.RecordCreditRestored(ctx, 2, decimal.RequireFromString("900.00"))
	bm.RecordConsumption(ctx, telemetry.ConsumptionRecorded)
	bm.RecordConsumption(ctx, telemetry.ConsumptionReversed)
	bm.RecordOperationDuration(ctx, "consolidate", 25*time.Millisecond)
	bm.RecordOutstanding(ctx, "CXP", telemetry.OutstandingStat{OpenDocuments: 3, Outstanding: decimal.RequireFromString("1200.50")})
}

type stubOutstandingProvider struct {
	calls atomic.Int32
	err   error
}

func (p *stubOutstandingProvider) OutstandingByKind(ctx context.Context) (map[string]telemetry.OutstandingStat, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return map[string]telemetry.OutstandingStat{
		"CXC": {OpenDocuments: 2, Outstanding: decimal.RequireFromString("500.00")},
		"CXP": {OpenDocuments: 1, Outstanding: decimal.RequireFromString("588.00")},
	}, nil
}

func TestBusinessMetrics_PeriodicCollection(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	provider := &stubOutstandingProvider{}

	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:               meter,
		Logger:              zap.NewNop(),
		OutstandingProvider: provider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bm.StartPeriodicCollection(ctx, 20*time.Millisecond)

	assert.Eventually(t, func() bool { return provider.calls.Load() >= 2 }, time.Second, 10*time.Millisecond)
	bm.Stop()
}

func TestBusinessMetrics_PeriodicCollection_ProviderError(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	provider := &stubOutstandingProvider{err: errors.New("connection refused")}

	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:               meter,
		OutstandingProvider: provider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bm.StartPeriodicCollection(ctx, 20*time.Millisecond)
	assert.Eventually(t, func() bool { return provider.calls.Load() >= 1 }, time.Second, 10*time.Millisecond)
	bm.Stop()
}

func TestBusinessMetrics_PeriodicCollection_NoProvider(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Should not panic with no provider
	bm.StartPeriodicCollection(ctx, 50*time.Millisecond)

	time.Sleep(80 * time.Millisecond)
	bm.Stop()
}

func TestBusinessMetrics_Stop_Idempotent(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	bm.Stop()
	bm.Stop()
}

func TestBusinessMetrics_StartPeriodicCollection_OnlyOnce(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	provider := &stubOutstandingProvider{}
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:               meter,
		OutstandingProvider: provider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bm.StartPeriodicCollection(ctx, time.Hour)
	bm.StartPeriodicCollection(ctx, time.Hour)

	assert.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), provider.calls.Load())
	bm.Stop()
}
