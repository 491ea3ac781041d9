package plugin

import (
	"context"
	"fmt"

	"github.com/c360/docstore/document"
)

// Prepared is the structured result of an admission check. These are return
// values, never errors: callers must check OK before writing. When OK is
// false Docs is empty, so a failed batch can never be partially admitted.
type Prepared struct {
	OK     bool
	Docs   []document.Document
	Errors []string
}

// CanAdd reports whether a document may enter the store as a fresh
// addition. Anything already carrying a revision token must go through the
// update path instead. Unlike the identity validation this is a falsy
// check: an empty revision string means "never persisted".
func CanAdd(d document.Document) bool {
	return d.Rev() == ""
}

// PrepareAdditions admits a batch of new documents. Any document already
// carrying a revision token fails the whole batch. When a schema registry
// is configured, each document must also satisfy the schema registered for
// its type.
func (p *Plugin) PrepareAdditions(docs []document.Document) Prepared {
	var errs []string
	for _, doc := range docs {
		if !CanAdd(doc) {
			errs = append(errs, fmt.Sprintf("Cannot add entity that is already in the database: %s", doc))
			continue
		}
		if p.schemas != nil {
			if err := p.schemas.Validate(doc); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	if len(errs) > 0 {
		return Prepared{Errors: errs}
	}
	return Prepared{OK: true, Docs: docs}
}

// PrepareDetachments checks that every document carries full identity
// before it may be released from tracking.
func (p *Plugin) PrepareDetachments(docs []document.Document) Prepared {
	errs := validateBatch(docs)
	if len(errs) > 0 {
		return Prepared{Errors: errs}
	}
	return Prepared{OK: true, Docs: docs}
}

// PrepareAttachments associates externally constructed documents with their
// current store-known revisions. Validation failures short-circuit before
// any store call. Otherwise each document's revision token is overwritten
// in place from a strict read; documents the store does not know keep no
// revision token, which routes them to the addition path.
func (p *Plugin) PrepareAttachments(ctx context.Context, docs []document.Document) (Prepared, error) {
	if errs := validateBatch(docs); len(errs) > 0 {
		return Prepared{Errors: errs}, nil
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID())
	}
	found, err := p.GetStrict(ctx, ids)
	if err != nil {
		return Prepared{}, err
	}

	revs := make(map[string]string, len(found))
	for _, doc := range found {
		revs[doc.ID()] = doc.Rev()
	}
	for _, doc := range docs {
		if rev, ok := revs[doc.ID()]; ok {
			doc.SetRev(rev)
		} else {
			doc.ClearRev()
		}
	}
	return Prepared{OK: true, Docs: docs}, nil
}

// FormatDeletions shapes documents into the tombstones the store's bulk
// write recognizes: identity fields plus the deletion marker, everything
// else dropped. Idempotent, and the inputs are left untouched.
func FormatDeletions(docs []document.Document) []document.Document {
	tombstones := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		tombstones = append(tombstones, document.Tombstone(doc))
	}
	return tombstones
}

func validateBatch(docs []document.Document) []string {
	var errs []string
	for _, doc := range docs {
		for _, res := range document.Failures(document.Validate(doc)) {
			errs = append(errs, res.Err)
		}
	}
	return errs
}
