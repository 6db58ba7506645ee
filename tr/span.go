// Package tr wires OpenTelemetry tracing and holds the span helpers shared by
// every package that records work.
package tr

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// End finishes span and records *err on it, if any. Use it with a named
// error return: defer tr.End(span, &err).
func End(span trace.Span, err *error) {
	defer span.End()
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
