package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// manualMeterProvider returns an enabled MeterProvider whose metrics are read
// on demand from the returned reader.
func manualMeterProvider(t *testing.T) (*MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return &MeterProvider{
		provider: provider,
		logger:   zap.NewNop(),
		config:   MetricsConfig{Enabled: true, ServiceName: "credit-ledger-test"},
	}, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func histogramCount(t *testing.T, m metricdata.Metrics) uint64 {
	t.Helper()
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "metric %s is not a float64 histogram", m.Name)
	var total uint64
	for _, dp := range hist.DataPoints {
		total += dp.Count
	}
	return total
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("noop"))
	assert.NoError(t, mp.ForceFlush(context.Background()))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestInstrumentHelpers(t *testing.T) {
	mp, reader := manualMeterProvider(t)
	meter := mp.Meter("test")
	ctx := context.Background()

	counter, err := NewCounter(meter, Instrument{Name: "ledger_test_total", Unit: "{op}"})
	require.NoError(t, err)
	counter.Inc(ctx, AttrDocumentKind.String("CXC"))
	counter.Add(ctx, 4, AttrDocumentKind.String("CXP"))

	hist, err := NewHistogram(meter, Instrument{
		Name:    "ledger_test_seconds",
		Unit:    "s",
		Buckets: OperationDurationBuckets,
	})
	require.NoError(t, err)
	hist.Record(ctx, 0.2)
	hist.RecordDuration(ctx, 30*time.Millisecond)

	gauge, err := NewGauge(meter, Instrument{Name: "ledger_test_open", Unit: "{documents}"})
	require.NoError(t, err)
	gauge.Record(ctx, 9)
	gauge.Record(ctx, 3)

	metrics := collect(t, reader)
	assert.Equal(t, int64(5), sumValue(t, metrics["ledger_test_total"]))
	assert.Equal(t, uint64(2), histogramCount(t, metrics["ledger_test_seconds"]))

	g, ok := metrics["ledger_test_open"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, g.DataPoints, 1)
	assert.Equal(t, int64(3), g.DataPoints[0].Value)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	mp, reader := manualMeterProvider(t)
	m, err := NewDBMetrics(mp.Meter("db"), DBMetricsConfig{SlowQueryThreshold: 50 * time.Millisecond}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordQuery(ctx, "select", "clientes", `SELECT * FROM "clientes" WHERE id = $1 FOR UPDATE`, 10*time.Millisecond)
	m.RecordQuery(ctx, "", "", "SELECT pg_advisory_xact_lock(hashtext($1))", 80*time.Millisecond)
	m.RecordQuery(ctx, "INSERT", "consumos", `INSERT INTO "consumos" ...`, time.Millisecond)

	metrics := collect(t, reader)
	assert.Equal(t, int64(3), sumValue(t, metrics["db_query_total"]))
	assert.Equal(t, int64(1), sumValue(t, metrics["db_slow_query_total"]))
	assert.Equal(t, uint64(3), histogramCount(t, metrics["db_query_duration_seconds"]))
	assert.Equal(t, uint64(2), histogramCount(t, metrics["ledger_lock_wait_seconds"]))
}

func TestDBMetrics_Defaults(t *testing.T) {
	mp, _ := manualMeterProvider(t)
	m, err := NewDBMetrics(mp.Meter("db"), DBMetricsConfig{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 200*time.Millisecond, m.config.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, m.config.PoolStatsInterval)
	m.Stop()
	m.Stop()
}

func TestOperationFor(t *testing.T) {
	tests := []struct {
		op, sql, want string
	}{
		{"create", "", "INSERT"},
		{"query", "", "SELECT"},
		{"update", "", "UPDATE"},
		{"delete", "", "DELETE"},
		{"raw", "  select pg_advisory_xact_lock(1)", "SELECT"},
		{"row", "UPDATE clientes SET saldo = 0", "UPDATE"},
		{"raw", "VACUUM", "OTHER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, operationFor(tt.op, tt.sql), tt.op+" "+tt.sql)
	}
}

func TestIsLockingStatement(t *testing.T) {
	assert.True(t, isLockingStatement(`SELECT * FROM "clientes" WHERE id = $1 for update`))
	assert.True(t, isLockingStatement("SELECT pg_advisory_xact_lock(hashtext($1))"))
	assert.False(t, isLockingStatement(`SELECT * FROM "cxc_documentos"`))
}
