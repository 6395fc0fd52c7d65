package workerpresentation

import (
	"context"

	apporder "github.com/Zhima-Mochi/foodorder/internal/application/order"
	domoutbox "github.com/Zhima-Mochi/foodorder/internal/domain/outbox"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/Zhima-Mochi/foodorder/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext injects a request-scoped logger for background/worker executions.
// Dynamic fields only: trace_id/span_id (if valid), event_id (generated if empty),
// plus caller-provided low-cardinality attributes (e.g. "event", "worker").
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	tel observability.Observability,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string,
) context.Context {
	if base == nil {
		base = observability.LoggerOf(tel)
	}

	fields := make([]observability.Field, 0, 4+len(attrs))

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// Middleware gives every delivery of an outbox event its own logger, tagged
// with the worker name and the event, and correlated with the publisher's span.
func Middleware(worker string, tel observability.Observability) apporder.HandlerMiddleware {
	base := observability.LoggerOf(tel).With(observability.F("component", "worker"))
	return func(next domoutbox.Handler) domoutbox.Handler {
		return func(ctx context.Context, e domoutbox.Event) error {
			sc := trace.SpanContextFromContext(ctx)
			ctx = WithEventContext(ctx, base, tel, sc.TraceID(), sc.SpanID(), map[string]string{
				"worker": worker,
				"event":  e.EventName(),
			})
			err := next(ctx, e)
			if err != nil {
				logctx.FromOr(ctx, base).Warn("event_handler_failed", observability.F("error", err.Error()))
			}
			return err
		}
	}
}
