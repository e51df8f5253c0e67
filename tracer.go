package oboidentity

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/chatgate/obo-identity"

func defaultTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
