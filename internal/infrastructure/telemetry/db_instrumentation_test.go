package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type tracedClient struct {
	ID     int64 `gorm:"primaryKey"`
	Nombre string
}

func (tracedClient) TableName() string { return "clientes" }

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&tracedClient{}))
	return db
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{Enabled: false}, zap.NewNop()))
	assert.Nil(t, db.Callback().Query().Get("ledger_trace:after_query"))
}

func TestRegisterDBTracing_AnnotatesSpans(t *testing.T) {
	recorder := recordSpans(t)
	db := openSQLite(t)

	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond,
		DBSystem:        "sqlite",
	}, zap.NewNop()))
	assert.NotNil(t, db.Callback().Query().Get("ledger_trace:after_query"))

	ctx, parent := StartSpan(context.Background(), "balance.record_consumption")
	require.NoError(t, db.WithContext(ctx).Create(&tracedClient{ID: 1, Nombre: "Ana"}).Error)

	var found tracedClient
	err := db.WithContext(ctx).First(&found, 99).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	parent.End()

	var sawInsert, sawSelect bool
	for _, span := range recorder.Ended() {
		attrs := attrMap(span.Attributes())
		if span.Name() == "balance.record_consumption" {
			continue
		}
		assert.Equal(t, parent.SpanContext().TraceID(), span.SpanContext().TraceID())
		if v, ok := attrs["db.sql.table"]; ok {
			assert.Equal(t, "clientes", v.AsString())
		}
		assert.True(t, attrs["db.slow_query"].AsBool())
		switch v := attrs["db.rows_affected"]; v.AsInt64() {
		case 1:
			sawInsert = true
		case 0:
			sawSelect = true
			assert.NotEqual(t, "Error", span.Status().Code.String(), "record not found is not a span error")
		}
	}
	assert.True(t, sawInsert)
	assert.True(t, sawSelect)
}

func TestDBMetrics_Instrument(t *testing.T) {
	mp, reader := manualMeterProvider(t)
	db := openSQLite(t)

	m, err := RegisterDBMetrics(context.Background(), db, mp, DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, m)
	defer m.Stop()

	require.NoError(t, db.Create(&tracedClient{ID: 1, Nombre: "Ana"}).Error)
	require.NoError(t, db.Model(&tracedClient{}).Where("id = ?", 1).Update("nombre", "Ana Maria").Error)
	var count int64
	require.NoError(t, db.Model(&tracedClient{}).Count(&count).Error)

	metrics := collect(t, reader)
	assert.GreaterOrEqual(t, sumValue(t, metrics["db_query_total"]), int64(3))
	assert.GreaterOrEqual(t, histogramCount(t, metrics["db_query_duration_seconds"]), uint64(3))
}

func TestRegisterDBMetrics_Disabled(t *testing.T) {
	mp, _ := manualMeterProvider(t)
	db := openSQLite(t)

	m, err := RegisterDBMetrics(context.Background(), db, mp, DBMetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, m)

	disabled, err := NewMeterProvider(context.Background(), MetricsConfig{}, zap.NewNop())
	require.NoError(t, err)
	m, err = RegisterDBMetrics(context.Background(), db, disabled, DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, m)
}
