// Package otel provides OpenTelemetry tracing helpers for the sync engine.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by every span the service emits
const (
	AttrCycleID     = attribute.Key("sync.cycle_id")
	AttrSyncMode    = attribute.Key("sync.mode")
	AttrShowID      = attribute.Key("show.tvmaze_id")
	AttrTVDBID      = attribute.Key("show.tvdb_id")
	AttrPage        = attribute.Key("tvmaze.page")
	AttrEndpoint    = attribute.Key("http.endpoint")
	AttrDecision    = attribute.Key("filter.decision")
	AttrResultCount = attribute.Key("result.count")
	AttrDryRun      = attribute.Key("sync.dry_run")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns the
// span already in ctx (a no-op span when there is none).
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// The status description is generic so API keys embedded in request URLs
// never reach the trace status; the error itself is kept in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
