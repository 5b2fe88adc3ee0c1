package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecorder(t *testing.T) (Tracer, *tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOtelTracer(tp.Tracer("test")), exporter, tp
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	got, span := NoopTracer{}.StartSpan(ctx, SpanName)
	assert.Equal(t, ctx, got)

	AddQueryAttributes(span, &QueryMetadata{SQL: "SELECT 1", Error: errors.New("boom")})
	span.End()
}

func TestNewOtelTracer_Nil(t *testing.T) {
	assert.IsType(t, NoopTracer{}, NewOtelTracer(nil))
}

func TestOtelTracer_ClientSpan(t *testing.T) {
	tr, exporter, _ := newRecorder(t)

	_, span := tr.StartSpan(context.Background(), SpanName)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanName, spans[0].Name)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
}

func TestAddQueryAttributes_RowReturning(t *testing.T) {
	tr, exporter, _ := newRecorder(t)

	_, span := tr.StartSpan(context.Background(), SpanName)
	AddQueryAttributes(span, &QueryMetadata{
		SQL:          "SELECT * FROM users",
		Database:     "sqlite",
		Operation:    "SELECT",
		RowReturning: true,
		Cached:       true,
		Rows:         3,
		Duration:     1500 * time.Microsecond,
	})
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0].Attributes)
	assert.Equal(t, "sqlite", attrs["db.system"].AsString())
	assert.Equal(t, "SELECT * FROM users", attrs["db.statement"].AsString())
	assert.True(t, attrs["db.cache_hit"].AsBool())
	assert.Equal(t, int64(3), attrs["db.rows"].AsInt64())
	assert.InDelta(t, 1.5, attrs["db.duration_ms"].AsFloat64(), 0.001)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestAddQueryAttributes_Error(t *testing.T) {
	tr, exporter, _ := newRecorder(t)

	_, span := tr.StartSpan(context.Background(), SpanName)
	AddQueryAttributes(span, &QueryMetadata{
		SQL:          "UPDATE users SET a=1",
		Operation:    "UPDATE",
		RowsAffected: 2,
		Error:        errors.New("no such table: users"),
	})
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0].Attributes)
	assert.Equal(t, int64(2), attrs["db.rows_affected"].AsInt64())
	_, hasCache := attrs["db.cache_hit"]
	assert.False(t, hasCache)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "no such table: users", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}
