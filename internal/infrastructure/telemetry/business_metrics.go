package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the credit ledger.
// It tracks consolidations, payments, credit restorations and open balances.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	documentsConsolidatedTotal *Counter
	documentAmountTotal        *Counter
	paymentTotal               *Counter
	paymentAmountTotal         *Counter
	creditRestoredTotal        *Counter
	consumptionTotal           *Counter

	// Histogram metrics
	operationDuration *Histogram

	// Gauge metrics (point-in-time values)
	outstandingAmount *Gauge
	openDocuments     *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	outstandingProvider OutstandingProvider
}

// OutstandingStat is the open balance of one document kind
type OutstandingStat struct {
	OpenDocuments int64
	Outstanding   decimal.Decimal
}

// OutstandingProvider provides open document balances for periodic metrics collection.
// This interface lets the telemetry layer read ledger state without
// depending on the finance domain directly.
type OutstandingProvider interface {
	// OutstandingByKind returns open document count and outstanding amount keyed by document kind (CXC, CXP)
	OutstandingByKind(ctx context.Context) (map[string]OutstandingStat, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter               metric.Meter
	Logger              *zap.Logger
	OutstandingProvider OutstandingProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:               cfg.Meter,
		logger:              logger,
		stopChan:            make(chan struct{}),
		outstandingProvider: cfg.OutstandingProvider,
	}

	counters := []struct {
		target **Counter
		spec   Instrument
	}{
		{&bm.documentsConsolidatedTotal, Instrument{Name: "ledger_documents_consolidated_total", Description: "Consolidated CxC and CxP documents", Unit: "{documents}"}},
		{&bm.documentAmountTotal, Instrument{Name: "ledger_document_amount_total", Description: "Consolidated amount in cents", Unit: "{cents}"}},
		{&bm.paymentTotal, Instrument{Name: "ledger_payment_total", Description: "Registered payments", Unit: "{payments}"}},
		{&bm.paymentAmountTotal, Instrument{Name: "ledger_payment_amount_total", Description: "Registered payment amount in cents", Unit: "{cents}"}},
		{&bm.creditRestoredTotal, Instrument{Name: "ledger_credit_restored_total", Description: "Credit restored to clients in cents", Unit: "{cents}"}},
		{&bm.consumptionTotal, Instrument{Name: "ledger_consumption_total", Description: "Consumption balance mutations by outcome", Unit: "{consumptions}"}},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.spec)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	if bm.operationDuration, err = NewHistogram(cfg.Meter, Instrument{
		Name:        "ledger_operation_duration_seconds",
		Description: "Duration of ledger operations",
		Unit:        "s",
		Buckets:     OperationDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.outstandingAmount, err = NewGauge(cfg.Meter, Instrument{
		Name:        "ledger_outstanding_amount",
		Description: "Outstanding amount of open documents in cents",
		Unit:        "{cents}",
	}); err != nil {
		return nil, err
	}
	if bm.openDocuments, err = NewGauge(cfg.Meter, Instrument{
		Name:        "ledger_open_documents",
		Description: "Documents with an outstanding amount",
		Unit:        "{documents}",
	}); err != nil {
		return nil, err
	}

	return bm, nil
}

// toCents converts a monetary amount to integer cents for counters
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// =============================================================================
// Ledger Metrics
// =============================================================================

// PaymentStatus represents the outcome of a payment for metrics labeling.
type PaymentStatus string

const (
	PaymentStatusSuccess  PaymentStatus = "success"
	PaymentStatusRejected PaymentStatus = "rejected"
	PaymentStatusFailed   PaymentStatus = "failed"
)

// ConsumptionOutcome labels balance mutations from the point of sale.
type ConsumptionOutcome string

const (
	ConsumptionRecorded ConsumptionOutcome = "recorded"
	ConsumptionApplied  ConsumptionOutcome = "applied"
	ConsumptionReversed ConsumptionOutcome = "reversed"
)

// RecordConsolidation records a created document and its total.
func (bm *BusinessMetrics) RecordConsolidation(ctx context.Context, kind string, total decimal.Decimal) {
	bm.documentsConsolidatedTotal.Inc(ctx, AttrDocumentKind.String(kind))
	bm.documentAmountTotal.Add(ctx, toCents(total), AttrDocumentKind.String(kind))
}

// RecordPayment records a payment registration attempt. Amount is only
// accumulated for successful payments.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, kind, paymentMethod string, status PaymentStatus, amount decimal.Decimal) {
	bm.paymentTotal.Inc(ctx,
		AttrDocumentKind.String(kind),
		AttrPaymentMethod.String(paymentMethod),
		AttrPaymentStatus.String(string(status)),
	)
	if status == PaymentStatusSuccess {
		bm.paymentAmountTotal.Add(ctx, toCents(amount),
			AttrDocumentKind.String(kind),
			AttrPaymentMethod.String(paymentMethod),
		)
	}
}

// RecordCreditRestored records credit given back when a receivable is fully paid.
func (bm *BusinessMetrics) RecordCreditRestored(ctx context.Context, clients int, amount decimal.Decimal) {
	bm.creditRestoredTotal.Add(ctx, toCents(amount), attribute.Int("clients", clients))
}

// RecordConsumption records a consumption balance mutation.
func (bm *BusinessMetrics) RecordConsumption(ctx context.Context, outcome ConsumptionOutcome) {
	bm.consumptionTotal.Inc(ctx, AttrConsumptionOutcome.String(string(outcome)))
}

// RecordOperationDuration records how long a ledger operation took.
func (bm *BusinessMetrics) RecordOperationDuration(ctx context.Context, operation string, d time.Duration) {
	bm.operationDuration.RecordDuration(ctx, d, AttrOperation.String(operation))
}

// RecordOutstanding records the open balance of one document kind.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOutstanding(ctx context.Context, kind string, stat OutstandingStat) {
	bm.outstandingAmount.Record(ctx, toCents(stat.Outstanding), AttrDocumentKind.String(kind))
	bm.openDocuments.Record(ctx, stat.OpenDocuments, AttrDocumentKind.String(kind))
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects outstanding balances every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectOutstanding(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectOutstanding(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectOutstanding(ctx context.Context) {
	if bm.outstandingProvider == nil {
		bm.logger.Debug("No outstanding provider configured, skipping ledger gauge collection")
		return
	}

	stats, err := bm.outstandingProvider.OutstandingByKind(ctx)
	if err != nil {
		bm.logger.Warn("Failed to read outstanding balances", zap.Error(err))
		return
	}
	for kind, stat := range stats {
		bm.RecordOutstanding(ctx, kind, stat)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
