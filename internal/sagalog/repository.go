package sagalog

import "context"

// Repository is the port for persisting saga log entries. The workflow
// depends on this abstraction, not on SQLite directly, so tests can swap in
// an in-memory recorder.
type Repository interface {
	// Save appends a new log entry. The log is append-only; there is no
	// update or upsert.
	Save(ctx context.Context, entry *Entry) error
}

// Reader is the query-side port used by the gateway's log endpoint.
type Reader interface {
	// ListBySaga returns every entry for the saga in insertion order.
	ListBySaga(ctx context.Context, sagaID string) ([]Entry, error)
}
