package contract

import (
	"context"
	"reflect"
	"time"

	"room-relay/domain"
)

// LiveQuery is one open standing query against the store. Matching
// documents are pushed as ordered batches until the query is stopped
// or faults.
type LiveQuery interface {
	// Batches delivers batches of entries sorted ascending by timestamp.
	// The channel is closed once the listening task terminates.
	Batches() <-chan []domain.Entry
	// Done is closed when the listening task has terminated, cleanly
	// or not. Polling it is non-blocking.
	Done() <-chan struct{}
	// Err returns the terminal error once Done is closed, nil for a
	// clean stop. It returns nil while the query is still live.
	Err() error
	// Close requests termination and waits for the listening task to
	// exit. Idempotent.
	Close()
}

// Collection is the append-only document collection the relay is built
// on: append one entry, or open a filtered ordered live query.
type Collection interface {
	// Append stamps the current time and writes one entry, returning
	// its document id.
	Append(ctx context.Context, room, payload string) (string, error)
	// AppendMessage is the producer-facing write path: failures are
	// logged and surfaced as a nil result instead of an error.
	AppendMessage(ctx context.Context, room, payload string) *string
	// OpenQuery opens a live query matching room exactly and
	// timestamp >= from, ordered ascending by timestamp.
	OpenQuery(ctx context.Context, room string, from time.Time) (LiveQuery, error)
}

// Store owns the connection to the document store. Connect fully tears
// down any previous connection (no stale listener survives a re-init)
// before establishing a fresh one.
type Store interface {
	Connect(ctx context.Context) (Collection, error)
	Close() error
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// HealthChecker is polled once per scheduler tick. Check must never
// block on I/O.
type HealthChecker interface {
	Check()
}

// CheckerFunc adapts a plain function to HealthChecker.
type CheckerFunc func()

func (f CheckerFunc) Check() { f() }

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
