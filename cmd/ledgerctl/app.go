package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appfinance "github.com/erp/credit-ledger/internal/application/finance"
	"github.com/erp/credit-ledger/internal/domain/shared"
	"github.com/erp/credit-ledger/internal/infrastructure/cache"
	"github.com/erp/credit-ledger/internal/infrastructure/config"
	"github.com/erp/credit-ledger/internal/infrastructure/event"
	"github.com/erp/credit-ledger/internal/infrastructure/logger"
	"github.com/erp/credit-ledger/internal/infrastructure/persistence"
	"github.com/erp/credit-ledger/internal/infrastructure/telemetry"
)

// app holds one process worth of ledger wiring
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *persistence.Database
	telemetry *telemetry.Providers
	idem      shared.IdempotencyStore

	balances      *appfinance.BalanceService
	consolidation *appfinance.ConsolidationService
	payments      *appfinance.PaymentService
}

// newApp loads configuration and connects every service to the database,
// the event bus, telemetry and the idempotency store
func newApp(ctx context.Context, logLevel string) (a *app, err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	base, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a = &app{cfg: cfg, log: base}
	defer func() {
		if err != nil {
			a.close(ctx)
		}
	}()

	if a.telemetry, err = telemetry.Setup(ctx, cfg.Telemetry, base); err != nil {
		return nil, fmt.Errorf("failed to start telemetry: %w", err)
	}
	a.log = a.telemetry.Logs.Bridge(base, zapcore.InfoLevel)

	if a.db, err = persistence.NewDatabase(&cfg.Database, a.log); err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "sqlite" {
		if err = persistence.AutoMigrate(a.db.DB); err != nil {
			return nil, err
		}
	}
	if err = a.telemetry.InstrumentDB(ctx, a.db.DB, cfg.Telemetry, a.log); err != nil {
		return nil, fmt.Errorf("failed to instrument database: %w", err)
	}
	metrics, err := a.telemetry.BusinessMetrics(ctx, a.db.DB, cfg.Ledger.MetricsPollInterval, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to register ledger metrics: %w", err)
	}

	if a.idem, err = cache.NewIdempotencyStore(ctx, cfg.Ledger.IdempotencyBackend, cfg.Redis, a.log); err != nil {
		return nil, err
	}

	bus := event.NewInMemoryEventBus(a.log)
	bus.Subscribe(event.NewAuditHandler(a.log))

	opts := appfinance.Options{
		ReversalWindow: cfg.Ledger.ReversalWindow,
		DefaultDueDays: cfg.Ledger.DefaultDueDays,
		IdempotencyTTL: cfg.Ledger.IdempotencyTTL,
	}
	txScope := persistence.NewGormTransactionScope(a.db.DB)

	a.balances = appfinance.NewBalanceService(txScope, a.log, opts)
	a.balances.SetEventPublisher(bus)
	a.balances.SetBusinessMetrics(metrics)

	a.consolidation = appfinance.NewConsolidationService(txScope, a.log, opts)
	a.consolidation.SetEventPublisher(bus)
	a.consolidation.SetBusinessMetrics(metrics)

	a.payments = appfinance.NewPaymentService(txScope, a.log, opts)
	a.payments.SetEventPublisher(bus)
	a.payments.SetBusinessMetrics(metrics)
	if a.idem != nil {
		a.payments.SetIdempotencyStore(a.idem)
	}

	return a, nil
}

// run executes fn under a root span and profiling labels for operation
func (a *app) run(ctx context.Context, operation string, labels map[string]string, fn func(context.Context) error) error {
	ctx = logger.WithContext(ctx, a.log)
	ctx, span := telemetry.StartServiceSpan(ctx, "ledgerctl", operation)
	defer span.End()

	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(operation, labels), func(ctx context.Context) {
		err = fn(ctx)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	var errs []error
	if a.idem != nil {
		errs = append(errs, a.idem.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("Shutdown finished with errors", zap.Error(err))
	}
	_ = a.log.Sync()
}
