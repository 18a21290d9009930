package middleware

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/block-bite/blockbite-orm/core"
)

// TracerName is the instrumentation name spans are created under.
const TracerName = "github.com/block-bite/blockbite-orm"

// Tracing opens one OpenTelemetry client span per statement, following the
// database semantic conventions (db.system, db.statement, db.operation).
type Tracing struct {
	system string
	tracer trace.Tracer
}

// NewTracing traces statements sent to a database of the given system
// ("mysql", "postgresql", "sqlite"). Without a provider the global one is used.
func NewTracing(system string, provider ...trace.TracerProvider) *Tracing {
	tp := otel.GetTracerProvider()
	if len(provider) > 0 && provider[0] != nil {
		tp = provider[0]
	}
	return &Tracing{system: system, tracer: tp.Tracer(TracerName)}
}

func (m *Tracing) Name() string {
	return "Tracing"
}

func (m *Tracing) Wrap(next core.Executor) core.Executor {
	return core.ExecutorFuncs{
		SelectFunc: func(ctx context.Context, query string, args ...any) ([]core.Row, error) {
			ctx, span := m.start(ctx, "blockbite.select", query)
			defer span.End()

			rows, err := next.Select(ctx, query, args...)
			span.SetAttributes(attribute.Int("db.rows_returned", len(rows)))
			finish(span, err)
			return rows, err
		},
		ExecFunc: func(ctx context.Context, query string, args ...any) (core.WriteResult, error) {
			ctx, span := m.start(ctx, "blockbite.exec", query)
			defer span.End()

			res, err := next.Exec(ctx, query, args...)
			if res.RowsAffected > 0 {
				span.SetAttributes(attribute.Int64("db.rows_affected", res.RowsAffected))
			}
			finish(span, err)
			return res, err
		},
	}
}

func (m *Tracing) start(ctx context.Context, name, query string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", m.system),
			attribute.String("db.statement", query),
			attribute.String("db.operation", DetectOperation(query)),
		),
	)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// DetectOperation returns the statement's verb: SELECT, INSERT, UPDATE,
// DELETE or UNKNOWN.
func DetectOperation(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	switch {
	case strings.HasPrefix(sql, "SELECT"), strings.HasPrefix(sql, "WITH"):
		return "SELECT"
	case strings.HasPrefix(sql, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(sql, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(sql, "DELETE"):
		return "DELETE"
	}
	return "UNKNOWN"
}
