package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool          // Enable database tracing
	LogFullSQL      bool          // Include query variables in spans (dev only)
	SlowQueryThresh time.Duration // Queries slower than this get db.slow_query=true
	DBSystem        string        // Database system name, e.g. "postgresql"
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

type queryStartKey struct{}

// gormOperations lists the callback processors the tracing hooks attach to
var gormOperations = []string{"create", "query", "update", "delete", "row", "raw"}

// RegisterDBTracing installs the otelgorm plugin and marks its spans when a
// statement is slow or takes a row or advisory lock.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}

	// Pool statistics come from DBMetrics.
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem), otelgorm.WithoutMetrics()}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	after := func(tx *gorm.DB) { annotateSpan(tx, cfg.SlowQueryThresh) }
	for _, op := range gormOperations {
		if err := registerAround(db, op, "ledger_trace", markQueryStart, after); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
		zap.String("db_system", cfg.DBSystem),
	)
	return nil
}

// registerAround hooks before and after the built-in gorm:<op> callback.
// Both hooks run inside the otelgorm span when that plugin is installed:
// its after hook ends the span and restores the parent context.
func registerAround(db *gorm.DB, op, prefix string, before, after func(*gorm.DB)) error {
	anchor := "gorm:" + op
	otelName := op
	if op == "query" {
		otelName = "select"
	}
	otelBefore, otelAfter := "otel:before:"+otelName, "otel:after:"+otelName
	beforeName, afterName := prefix+":before_"+op, prefix+":after_"+op

	cb := db.Callback()
	var errBefore, errAfter error
	switch op {
	case "create":
		errBefore = cb.Create().Before(anchor).After(otelBefore).Register(beforeName, before)
		errAfter = cb.Create().After(anchor).Before(otelAfter).Register(afterName, after)
	case "update":
		errBefore = cb.Update().Before(anchor).After(otelBefore).Register(beforeName, before)
		errAfter = cb.Update().After(anchor).Before(otelAfter).Register(afterName, after)
	case "delete":
		errBefore = cb.Delete().Before(anchor).After(otelBefore).Register(beforeName, before)
		errAfter = cb.Delete().After(anchor).Before(otelAfter).Register(afterName, after)
	case "row":
		errBefore = cb.Row().Before(anchor).After(otelBefore).Register(beforeName, before)
		errAfter = cb.Row().After(anchor).Before(otelAfter).Register(afterName, after)
	case "raw":
		errBefore = cb.Raw().Before(anchor).After(otelBefore).Register(beforeName, before)
		errAfter = cb.Raw().After(anchor).Before(otelAfter).Register(afterName, after)
	default:
		errBefore = cb.Query().Before(anchor).After(otelBefore).Register(beforeName, before)
		errAfter = cb.Query().After(anchor).Before(otelAfter).Register(afterName, after)
	}
	if errBefore != nil {
		return errBefore
	}
	return errAfter
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func annotateSpan(db *gorm.DB, slowThreshold time.Duration) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if isLockingStatement(db.Statement.SQL.String()) {
		span.SetAttributes(attribute.Bool("db.ledger.lock", true))
	}
	if started, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(started); elapsed > slowThreshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", slowThreshold.Milliseconds()),
			))
		}
	}
}

// isLockingStatement reports row locks and advisory locks
func isLockingStatement(sql string) bool {
	upper := strings.ToUpper(sql)
	return strings.Contains(upper, "FOR UPDATE") || strings.Contains(upper, "PG_ADVISORY_XACT_LOCK")
}
