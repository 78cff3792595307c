package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/credit-ledger/internal/infrastructure/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Providers bundles every telemetry component a ledger process owns.
type Providers struct {
	Tracer   *TracerProvider
	Meter    *MeterProvider
	Logs     *LoggerProvider
	Profiler *Profiler

	dbMetrics       *DBMetrics
	businessMetrics *BusinessMetrics
}

// Setup starts tracing, metrics, log export and profiling from cfg. With
// telemetry disabled every provider is a no-op.
func Setup(ctx context.Context, cfg config.TelemetryConfig, log *zap.Logger) (*Providers, error) {
	p := &Providers{}
	var err error

	if p.Tracer, err = NewTracerProvider(ctx, Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, log); err != nil {
		return nil, err
	}
	if p.Meter, err = NewMeterProvider(ctx, MetricsConfig{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, log); err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}
	if p.Logs, err = NewLoggerProvider(ctx, LogsConfig{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
	}, log); err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}
	if p.Profiler, err = NewProfiler(ProfilerConfig{
		Enabled:         cfg.ProfilingEnabled,
		ServerAddress:   cfg.PyroscopeEndpoint,
		ApplicationName: cfg.ServiceName,
		ProfileMutex:    true,
		ProfileBlock:    true,
	}, log); err != nil {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}
	if p.Profiler.IsEnabled() {
		if err := p.Tracer.EnableSpanProfiles(); err != nil {
			return nil, errors.Join(err, p.Shutdown(ctx))
		}
	}
	return p, nil
}

// InstrumentDB attaches query tracing, query metrics and the outstanding
// balance gauges to db.
func (p *Providers) InstrumentDB(ctx context.Context, db *gorm.DB, cfg config.TelemetryConfig, log *zap.Logger) error {
	if err := RegisterDBTracing(db, DBTracingConfig{
		Enabled:         cfg.Enabled && cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: cfg.DBSlowQueryThresh,
		DBSystem:        db.Dialector.Name(),
	}, log); err != nil {
		return err
	}

	dbMetrics, err := RegisterDBMetrics(ctx, db, p.Meter, DBMetricsConfig{
		Enabled:            cfg.Enabled,
		SlowQueryThreshold: cfg.DBSlowQueryThresh,
	}, log)
	if err != nil {
		return err
	}
	p.dbMetrics = dbMetrics
	return nil
}

// BusinessMetrics returns the ledger business metrics, creating them on first
// use. The outstanding gauges are refreshed from db every pollInterval.
func (p *Providers) BusinessMetrics(ctx context.Context, db *gorm.DB, pollInterval time.Duration, log *zap.Logger) (*BusinessMetrics, error) {
	if p.businessMetrics != nil {
		return p.businessMetrics, nil
	}
	bm, err := NewBusinessMetrics(BusinessMetricsConfig{
		Meter:               p.Meter.Meter("credit-ledger"),
		Logger:              log,
		OutstandingProvider: NewGormOutstandingProvider(db),
	})
	if err != nil {
		return nil, err
	}
	if p.Meter.IsEnabled() && pollInterval > 0 {
		bm.StartPeriodicCollection(ctx, pollInterval)
	}
	p.businessMetrics = bm
	return bm, nil
}

// Shutdown stops every started component, flushing pending telemetry.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.businessMetrics != nil {
		p.businessMetrics.Stop()
	}
	if p.dbMetrics != nil {
		p.dbMetrics.Stop()
	}
	if p.Profiler != nil {
		errs = append(errs, p.Profiler.Stop())
	}
	if p.Logs != nil {
		errs = append(errs, p.Logs.Shutdown(ctx))
	}
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
