// Package document defines the document model shared by the plugin and its
// storage backends: a JSON document carrying the identity fields the store
// needs (id, revision token, document type) plus arbitrary caller fields.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Identity field names every persisted document carries.
const (
	// FieldID is the globally unique document id, immutable once assigned.
	FieldID = "id"

	// FieldRev is the opaque revision token the store assigns on each
	// successful write. Absent means "not yet persisted"; stale means the
	// document conflicts with a newer version.
	FieldRev = "rev"

	// FieldDocType is the discriminator naming the logical entity kind.
	FieldDocType = "docType"

	// FieldDeleted marks a tombstone in a bulk write.
	FieldDeleted = "deleted"
)

// Document is a caller-owned JSON document. The plugin never holds a
// reference to a document beyond a single operation's call stack, but bulk
// operations mutate documents in place to back-fill store-assigned revision
// tokens, so callers must not assume immutability of what they pass in.
type Document map[string]any

// New returns a document of the given type with a freshly assigned id and
// no revision token.
func New(docType string) Document {
	return Document{
		FieldID:      uuid.NewString(),
		FieldDocType: docType,
	}
}

// ID returns the document id, or "" when absent.
func (d Document) ID() string { return d.str(FieldID) }

// Rev returns the revision token, or "" when absent.
func (d Document) Rev() string { return d.str(FieldRev) }

// DocType returns the document-type discriminator, or "" when absent.
func (d Document) DocType() string { return d.str(FieldDocType) }

// SetRev overwrites the revision token in place.
func (d Document) SetRev(rev string) { d[FieldRev] = rev }

// ClearRev removes the revision token, returning the document to its
// not-yet-persisted shape.
func (d Document) ClearRev() { delete(d, FieldRev) }

// Deleted reports whether the document is a tombstone.
func (d Document) Deleted() bool {
	v, _ := d[FieldDeleted].(bool)
	return v
}

// Has reports whether the field is present and non-nil. Presence is what
// matters here, not truthiness: an empty string counts as present.
func (d Document) Has(field string) bool {
	v, ok := d[field]
	return ok && v != nil
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	c := make(Document, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}

// String serializes the document for diagnostics. A marshal failure falls
// back to fmt so a bad value never masks the message it appears in.
func (d Document) String() string {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(d))
	}
	return string(b)
}

// Tombstone returns the shape the store's bulk write recognizes as a
// deletion: a shallow copy retaining only the identity fields, with the
// deleted flag set. All other fields are dropped. Applying it to an
// existing tombstone yields the same shape.
func Tombstone(d Document) Document {
	t := Document{FieldDeleted: true}
	for _, field := range []string{FieldID, FieldRev, FieldDocType} {
		if v, ok := d[field]; ok {
			t[field] = v
		}
	}
	return t
}

func (d Document) str(field string) string {
	v, _ := d[field].(string)
	return v
}
