package natsclient

import (
	"errors"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// Well-known KV conditions, normalized from the raw NATS error shapes.
var (
	ErrKeyNotFound      = errors.New("natsclient: key not found")
	ErrKeyExists        = errors.New("natsclient: key already exists")
	ErrRevisionMismatch = errors.New("natsclient: revision mismatch (concurrent update)")
)

// IsKVNotFoundError reports whether err indicates a missing or deleted key.
func IsKVNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, jetstream.ErrKeyNotFound) ||
		errors.Is(err, jetstream.ErrKeyDeleted) {
		return true
	}
	// Raw server errors surface as messages with the API error code.
	msg := err.Error()
	return strings.Contains(msg, "key not found") || strings.Contains(msg, "10037")
}

// IsKVConflictError reports whether err indicates a conflict: the key
// already exists, or a compare-and-swap saw the wrong revision.
func IsKVConflictError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrKeyExists) ||
		errors.Is(err, ErrRevisionMismatch) ||
		errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "wrong last sequence") ||
		strings.Contains(msg, "10071") ||
		strings.Contains(msg, "key exists") ||
		strings.Contains(msg, "10058")
}
