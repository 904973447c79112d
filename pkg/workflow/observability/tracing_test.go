package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest installs an in-memory span exporter as the global tracer
// provider and rebinds the package tracer to it.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("callwise")

	return exporter, func() {
		otel.SetTracerProvider(original)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("tracer provider shutdown: %v", err)
		}
	}
}

func attrValue(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsString()
		}
	}
	return ""
}

func TestStartRunSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	_, span := m.StartRunSpan(context.Background(), "ingest", "run-123")
	require.NotNil(t, span)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	s := spans[0]
	assert.Equal(t, "callwise.run", s.Name)
	assert.Equal(t, "ingest", attrValue(s.Attributes, "graph.name"))
	assert.Equal(t, "run-123", attrValue(s.Attributes, "run.id"))
}

func TestStartNodeSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()

	t.Run("span name carries node ID", func(t *testing.T) {
		exporter.Reset()
		_, span := m.StartNodeSpan(context.Background(), "reserve")
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "callwise.node.reserve", spans[0].Name)
		assert.Equal(t, "reserve", attrValue(spans[0].Attributes, "node.id"))
	})

	t.Run("node span is child of run span", func(t *testing.T) {
		exporter.Reset()

		runCtx, runSpan := m.StartRunSpan(context.Background(), "ingest", "run-9")
		_, nodeSpan := m.StartNodeSpan(runCtx, "fetch")
		nodeSpan.End()
		runSpan.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 2)

		var node, run tracetest.SpanStub
		for _, s := range spans {
			switch s.Name {
			case "callwise.node.fetch":
				node = s
			case "callwise.run":
				run = s
			}
		}
		assert.Equal(t, run.SpanContext.SpanID(), node.Parent.SpanID())
	})
}

func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()

	t.Run("success sets OK status", func(t *testing.T) {
		exporter.Reset()
		_, span := m.StartNodeSpan(context.Background(), "good")
		m.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("error is recorded with error status", func(t *testing.T) {
		exporter.Reset()
		_, span := m.StartNodeSpan(context.Background(), "bad")
		m.EndSpanWithError(span, errors.New("fetch failed"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		assert.Equal(t, "fetch failed", spans[0].Status.Description)
		require.NotEmpty(t, spans[0].Events)
	})

	t.Run("nil span is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.EndSpanWithError(nil, errors.New("ignored"))
		})
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	m := NewSpanManager()
	ctx, span := m.StartNodeSpan(context.Background(), "act")
	m.AddSpanEvent(ctx, "tool invoked", attribute.String("tool", "search_transcripts"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "tool invoked", spans[0].Events[0].Name)
}

func TestNoopSpanManager(t *testing.T) {
	var m NoopSpanManager
	ctx := context.Background()

	gotCtx, span := m.StartRunSpan(ctx, "g", "r")
	assert.Equal(t, ctx, gotCtx)
	assert.NotNil(t, span)

	assert.NotPanics(t, func() {
		m.EndSpanWithError(span, errors.New("ignored"))
		m.AddSpanEvent(ctx, "ignored")
	})
}
