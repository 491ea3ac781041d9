// Package backend defines the narrow operation set the plugin consumes from
// the underlying document store, plus the closed error taxonomy every
// adapter maps its native failures into. Query-language semantics,
// replication, and indexing stay on the store's side of this line.
package backend

import (
	"context"

	"github.com/c360/docstore/document"
)

// Handle is one open store handle. Handles are opened fresh per logical
// operation and are not shared across operations, which sidesteps
// connection-state races at the cost of open/close overhead per call.
type Handle interface {
	// Find returns the documents matching the selector. A nil or empty
	// selector matches every live document. Matching follows Matches.
	Find(ctx context.Context, selector map[string]any) ([]document.Document, error)

	// BulkGet reads documents by id, returning one result per requested id
	// in request order. An id with no live document yields a result with
	// empty Docs and a nil Err; Err is reserved for real read failures.
	BulkGet(ctx context.Context, ids []string) ([]BulkGetResult, error)

	// BulkWrite applies the documents in order and returns one outcome per
	// document. Per-item conditions (conflicts, missing targets) are
	// reported as failed outcomes, not as a call error; a call error means
	// the batch as a whole did not reach the store.
	BulkWrite(ctx context.Context, docs []document.Document) ([]WriteOutcome, error)

	// Close releases the handle. Any use of a closed handle, including a
	// second Close, returns ErrHandleClosed.
	Close() error

	// Destroy removes the underlying store. A destroyed handle is not
	// closable.
	Destroy(ctx context.Context) error
}

// Opener constructs store handles by logical store name.
type Opener interface {
	Open(ctx context.Context, name string) (Handle, error)
}

// WriteOutcome is the per-document result of a bulk write.
type WriteOutcome struct {
	// ID of the document the outcome belongs to. Failed outcomes may lack
	// an id when the store could not attribute the failure.
	ID string

	// Rev is the store-assigned revision token, when one was produced.
	Rev string

	// OK reports whether the store acknowledged the write.
	OK bool

	// Err carries the error marker; nil means success.
	Err *StoreError
}

// Failed reports whether the outcome carries the error marker.
func (o WriteOutcome) Failed() bool { return o.Err != nil }

// BulkGetResult is the per-id result of a bulk read.
type BulkGetResult struct {
	ID   string
	Docs []document.Document
	Err  *StoreError
}
