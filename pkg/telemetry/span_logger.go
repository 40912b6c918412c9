package telemetry

import (
	"context"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// spanLogger emits finished spans through zerolog, for environments without
// an OTLP collector.
type spanLogger struct {
	logger zerolog.Logger
}

var _ sdktrace.SpanExporter = (*spanLogger)(nil)

func newSpanLogger(logger zerolog.Logger) sdktrace.SpanExporter {
	return &spanLogger{logger: logger.With().Str("component", "otel").Logger()}
}

func (l *spanLogger) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		sc := span.SpanContext()
		event := l.logger.Info().
			Str("span_name", span.Name()).
			Str("span_kind", span.SpanKind().String()).
			Dur("duration", span.EndTime().Sub(span.StartTime()))
		if sc.TraceID().IsValid() {
			event = event.Str("trace_id", sc.TraceID().String())
		}
		if sc.SpanID().IsValid() {
			event = event.Str("span_id", sc.SpanID().String())
		}
		for _, attr := range span.Attributes() {
			event = event.Str(string(attr.Key), attr.Value.Emit())
		}
		event.Msg("span completed")
	}
	return nil
}

func (l *spanLogger) Shutdown(context.Context) error {
	return nil
}
