package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest installs a manual-reader meter provider as the global
// provider and returns the reader plus a cleanup function.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	return reader, func() {
		otel.SetMeterProvider(original)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("meter provider shutdown: %v", err)
		}
	}
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumForAttr returns the int64 sum datapoint value carrying the given
// string attribute, or -1.
func sumForAttr(metric *metricdata.Metrics, key, value string) int64 {
	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok {
		return -1
	}
	for _, dp := range sum.DataPoints {
		for _, attr := range dp.Attributes.ToSlice() {
			if string(attr.Key) == key && attr.Value.AsString() == value {
				return dp.Value
			}
		}
	}
	return -1
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "expected a real metrics recorder")
}

func TestRecordNodeExecution(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records execution count", func(t *testing.T) {
		m.RecordNodeExecution(ctx, "segment", 50*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "callwise.node.executions")
		require.NotNil(t, metric)
		assert.GreaterOrEqual(t, sumForAttr(metric, "node_id", "segment"), int64(1))
	})

	t.Run("records latency histogram", func(t *testing.T) {
		m.RecordNodeExecution(ctx, "chunk", 100*time.Millisecond, nil)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "callwise.node.latency_ms")
		require.NotNil(t, metric)

		hist, ok := metric.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "expected histogram data")
		require.NotEmpty(t, hist.DataPoints)
	})

	t.Run("records errors only on failure", func(t *testing.T) {
		m.RecordNodeExecution(ctx, "clean", 10*time.Millisecond, nil)
		m.RecordNodeExecution(ctx, "broken", 10*time.Millisecond, errors.New("node failed"))

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "callwise.node.errors")
		require.NotNil(t, metric)
		assert.GreaterOrEqual(t, sumForAttr(metric, "node_id", "broken"), int64(1))
		assert.Equal(t, int64(-1), sumForAttr(metric, "node_id", "clean"))
	})
}

func TestRecordRun(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRun(ctx, true, 200*time.Millisecond)
	m.RecordRun(ctx, false, 30*time.Millisecond)

	rm := collectMetrics(t, reader)

	runs := findMetric(rm, "callwise.run.count")
	require.NotNil(t, runs)
	sum, ok := runs.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	latency := findMetric(rm, "callwise.run.latency_ms")
	require.NotNil(t, latency)
}

func TestRecordToolInvocation(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordToolInvocation(context.Background(), "search_transcripts", false)
	m.RecordToolInvocation(context.Background(), "search_transcripts", false)

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "callwise.tool.invocations")
	require.NotNil(t, metric)
	assert.Equal(t, int64(2), sumForAttr(metric, "tool", "search_transcripts"))
}

func TestNoopMetrics_DoesNothing(t *testing.T) {
	var m NoopMetrics
	assert.NotPanics(t, func() {
		m.RecordNodeExecution(context.Background(), "x", time.Second, errors.New("e"))
		m.RecordRun(context.Background(), false, time.Second)
		m.RecordToolInvocation(context.Background(), "t", true)
	})
}
