package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const dbTracerName = "settlement-service/db"

// DBSpanConfig describes a database span
type DBSpanConfig struct {
	Operation string
	Table     string
}

// StartDBSpan starts a client span for a single statement
func StartDBSpan(ctx context.Context, cfg DBSpanConfig) (context.Context, trace.Span) {
	return GetTracer(dbTracerName).Start(ctx, "db."+cfg.Operation+" "+cfg.Table,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", cfg.Operation),
			attribute.String("db.sql.table", cfg.Table),
		),
	)
}

// EndDBSpan records the outcome of the statement on span. It does not end the span.
func EndDBSpan(span trace.Span, err error, rows int64) {
	span.SetAttributes(attribute.Int64("db.rows_affected", rows))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
