// Package sagalog defines the domain types for the durable saga log.
//
// The log is an append-only audit trail of every transition an order saga
// goes through. It serves two purposes:
//
//  1. Observability: the gateway exposes it so a reader can see exactly
//     where a saga is (or was) and jump to the distributed trace via the
//     trace_id column.
//
//  2. Post-mortem: the workflow's in-memory progress state dies with its
//     instance; the log survives restarts.
package sagalog

import "time"

// Status represents the lifecycle state of a saga execution.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	// StatusCompensated marks a saga whose rollback ran to completion.
	StatusCompensated Status = "COMPENSATED"
	// StatusFailed marks a saga whose rollback itself failed; these rows
	// need operator attention.
	StatusFailed Status = "FAILED"
)

// Entry is a single row in the saga_logs table: a point-in-time snapshot of
// one saga execution.
type Entry struct {
	// SagaID is the workflow instance ID handed out when the order was
	// submitted, so log rows can be joined with progress queries.
	SagaID string

	// Status is the lifecycle state at the time this row was written.
	Status Status

	// Stage is the progress-state tag or compensation name that was just
	// committed (e.g. "inventory_reserved", "compensate_payment").
	Stage string

	// Payload is the item name that started the saga. Written once on the
	// STARTED row, empty after.
	Payload string

	// ErrorMessages accumulates failure details as a JSON array of strings.
	ErrorMessages string

	// TraceID is the W3C trace ID of the OpenTelemetry span that was active
	// when this row was written. Empty when no span was recording.
	TraceID string

	// SpanID pinpoints the exact span within the trace.
	SpanID string

	// UpdatedAt is the wall-clock time of this row.
	UpdatedAt time.Time
}
