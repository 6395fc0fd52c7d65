package application

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/foodorder/internal/domain/failure"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/Zhima-Mochi/foodorder/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// IDGenerator issues identifiers for new entities.
type IDGenerator interface {
	NewID() string
}

const spanPrefix = "UC."

// Instrument holds the tracer, base logger and RED metrics a service reports through.
type Instrument struct {
	tracer observability.Tracer
	log    observability.Logger
	reqs   observability.Counter   // usecase_requests_total{use_case,outcome}
	dur    observability.Histogram // usecase_duration_seconds{use_case}
}

// NewInstrument binds tel to service. A nil tel yields no-op hooks.
func NewInstrument(tel observability.Observability, service string) Instrument {
	metrics := observability.MetricsOf(tel)
	return Instrument{
		tracer: observability.TracerOf(tel),
		log:    observability.LoggerOf(tel).With(observability.F("service", service)),
		reqs:   metrics.Counter(observability.MUsecaseRequests),
		dur:    metrics.Histogram(observability.MUsecaseDuration),
	}
}

// Logger is the service logger without request scope.
func (in Instrument) Logger() observability.Logger { return in.log }

// Run is one use case execution in flight.
type Run struct {
	in      Instrument
	useCase string
	span    trace.Span
	log     observability.Logger
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

// Start opens the "UC.<spanName>" span and a request-scoped logger tagged with
// useCase. The returned context carries both.
func (in Instrument) Start(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, spanPrefix+spanName, attrs...)

	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	ctx = logctx.With(ctx, logger)

	return ctx, &Run{
		in:      in,
		useCase: useCase,
		span:    span,
		log:     logger,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

func (r *Run) Span() trace.Span             { return r.span }
func (r *Run) Logger() observability.Logger { return r.log }

// Fail marks the run failed with status and returns err unchanged.
func (r *Run) Fail(status string, err error) error {
	r.outcome, r.status = "error", status
	return err
}

// SetStatus replaces the status text while keeping the outcome.
func (r *Run) SetStatus(status string) { r.status = status }

// Annotate adds fields to the closing log line.
func (r *Run) Annotate(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// End closes the span, records metrics and writes the use_case_done line.
// Call it deferred with the use case's named error.
func (r *Run) End(err error) {
	if err != nil && r.outcome == "success" {
		r.outcome, r.status = "error", StatusOf(err)
	}
	lat := time.Since(r.start).Seconds()

	if err != nil {
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, r.status)
	} else {
		r.span.SetStatus(codes.Ok, r.status)
	}
	r.span.End()

	r.in.reqs.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.in.dur.Observe(lat, observability.L("use_case", r.useCase))

	fields := append([]observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.log.Info("use_case_done", fields...)
}

// StatusOf names the failure kind of err for logs and span status.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, failure.ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, failure.ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, failure.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, failure.ErrConflict):
		return "CONFLICT"
	case errors.Is(err, failure.ErrGateway):
		return "GATEWAY_FAILED"
	case errors.Is(err, failure.ErrPersistence):
		return "PERSISTENCE_FAILED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "INTERNAL"
	}
}
