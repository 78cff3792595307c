package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddressAndName(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "credit-ledger"}, zap.NewNop())
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, zap.NewNop())
	assert.ErrorContains(t, err, "application name")
}

func TestProfiler_ProfileTypes(t *testing.T) {
	base := (&Profiler{}).profileTypes()
	withLocks := (&Profiler{config: ProfilerConfig{ProfileMutex: true, ProfileBlock: true}}).profileTypes()
	assert.Len(t, withLocks, len(base)+4)
}

func TestWithProfilingLabels(t *testing.T) {
	labels := OperationLabels("consolidate_receivables", map[string]string{
		ProfilingLabelDocumentKind: "CXC",
		"client_id":                "4f6c",
	})

	var operation, kind, client string
	var okClient bool
	WithProfilingLabels(context.Background(), labels, func(ctx context.Context) {
		operation, _ = pprof.Label(ctx, ProfilingLabelOperation)
		kind, _ = pprof.Label(ctx, ProfilingLabelDocumentKind)
		client, okClient = pprof.Label(ctx, "client_id")
	})

	assert.Equal(t, "consolidate_receivables", operation)
	assert.Equal(t, "CXC", kind)
	assert.False(t, okClient, "high-cardinality label %q leaked", client)
}

func TestWithProfilingLabels_Empty(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"Document-Kind": "CXP",
		"region":        strings.Repeat("x", MaxLabelValueLength+10),
		"":              "empty key",
		"empty":         "",
		"Payment ID":    "p-1",
		"op!":           "pay",
	})

	assert.Equal(t, []string{
		"document_kind", "CXP",
		"op", "pay",
		"region", strings.Repeat("x", MaxLabelValueLength),
	}, pairs)
}
