package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "planloom"

// Metrics holds all PlanLoom metric instruments.
type Metrics struct {
	ExecutionsStarted   metric.Int64Counter
	ExecutionsCompleted metric.Int64Counter
	RoundsProcessed     metric.Int64Counter
	Escalations         metric.Int64Counter
	GenerationLatency   metric.Float64Histogram
	RoundsToConsensus   metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ExecutionsStarted, err = meter.Int64Counter("planloom.executions.started",
		metric.WithDescription("Number of task executions started"))
	if err != nil {
		return nil, err
	}

	m.ExecutionsCompleted, err = meter.Int64Counter("planloom.executions.completed",
		metric.WithDescription("Number of task executions completed"))
	if err != nil {
		return nil, err
	}

	m.RoundsProcessed, err = meter.Int64Counter("planloom.rounds.processed",
		metric.WithDescription("Number of review rounds processed"))
	if err != nil {
		return nil, err
	}

	m.Escalations, err = meter.Int64Counter("planloom.executions.escalated",
		metric.WithDescription("Number of executions escalated to user review"))
	if err != nil {
		return nil, err
	}

	m.GenerationLatency, err = meter.Float64Histogram("planloom.generation.duration_seconds",
		metric.WithDescription("LLM generation call duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.RoundsToConsensus, err = meter.Int64Histogram("planloom.executions.rounds_to_consensus",
		metric.WithDescription("Rounds needed before an execution completed"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
