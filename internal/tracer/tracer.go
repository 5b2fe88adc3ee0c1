// Package tracer wraps OpenTelemetry spans around statement execution.
package tracer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanName is the name given to every statement span.
const SpanName = "fluentdb.query"

// Tracer starts spans.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span is the subset of trace.Span used during execution.
type Span interface {
	SetAttributes(attrs ...attribute.KeyValue)
	RecordError(err error)
	SetStatus(code codes.Code, description string)
	End()
}

// NoopTracer is the default tracer. It returns ctx unchanged.
type NoopTracer struct{}

// StartSpan returns ctx and a NoopSpan.
func (NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, NoopSpan{}
}

// NoopSpan discards everything.
type NoopSpan struct{}

func (NoopSpan) SetAttributes(...attribute.KeyValue) {}
func (NoopSpan) RecordError(error)                   {}
func (NoopSpan) SetStatus(codes.Code, string)        {}
func (NoopSpan) End()                                {}

// OtelTracer adapts a trace.Tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer wraps t. A nil t yields a NoopTracer.
func NewOtelTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NoopTracer{}
	}
	return &OtelTracer{tracer: t}
}

// StartSpan starts a client span.
func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) SetAttributes(attrs ...attribute.KeyValue) { s.span.SetAttributes(attrs...) }
func (s otelSpan) RecordError(err error)                     { s.span.RecordError(err) }
func (s otelSpan) SetStatus(code codes.Code, desc string)    { s.span.SetStatus(code, desc) }
func (s otelSpan) End()                                      { s.span.End() }

// QueryMetadata describes one executed statement, using the OpenTelemetry
// database semantic conventions where they apply.
type QueryMetadata struct {
	SQL          string
	Database     string // db.system: mysql, postgres, sqlite
	Operation    string // SELECT, INSERT, OPTIMIZE, ...
	RowReturning bool
	Cached       bool
	Rows         int
	RowsAffected int64
	Duration     time.Duration
	Error        error
}

// AddQueryAttributes records meta on span and sets its status.
func AddQueryAttributes(span Span, meta *QueryMetadata) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", meta.Database),
		attribute.String("db.statement", meta.SQL),
		attribute.String("db.operation", meta.Operation),
		attribute.Bool("db.row_returning", meta.RowReturning),
		attribute.Float64("db.duration_ms", float64(meta.Duration.Microseconds())/1000.0),
	}
	if meta.RowReturning {
		attrs = append(attrs,
			attribute.Bool("db.cache_hit", meta.Cached),
			attribute.Int("db.rows", meta.Rows))
	} else if meta.RowsAffected > 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", meta.RowsAffected))
	}
	span.SetAttributes(attrs...)

	if meta.Error != nil {
		span.RecordError(meta.Error)
		span.SetStatus(codes.Error, meta.Error.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
