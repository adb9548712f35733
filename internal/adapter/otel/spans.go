package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "planloom"

// StartExecutionSpan starts a span for a task execution workflow step.
func StartExecutionSpan(ctx context.Context, name, executionID, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithAttributes(
			attribute.String("execution.id", executionID),
			attribute.String("task.id", taskID),
		),
	)
}

// StartRoundSpan starts a span for one review round.
func StartRoundSpan(ctx context.Context, executionID string, round int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "round",
		trace.WithAttributes(
			attribute.String("execution.id", executionID),
			attribute.Int("round.number", round),
		),
	)
}

// StartGenerationSpan starts a span for a single LLM generation call.
func StartGenerationSpan(ctx context.Context, kind, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "generation",
		trace.WithAttributes(
			attribute.String("generation.kind", kind),
			attribute.String("agent.id", agentID),
		),
	)
}
