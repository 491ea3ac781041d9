package plugin

import (
	"github.com/c360/docstore/backend"
	"github.com/c360/docstore/document"
)

// WriteAck is one confirmed write in a reconciled response.
type WriteAck struct {
	ID  string `json:"id"`
	OK  bool   `json:"ok"`
	Rev string `json:"rev,omitempty"`
}

// WriteFailure is one failed write in a reconciled response.
type WriteFailure struct {
	ID      string `json:"id,omitempty"`
	Rev     string `json:"rev,omitempty"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Response is the uniform shape callers get back from a bulk write: every
// attributable outcome lands in exactly one of Successes or Errors, and the
// counts always equal the map cardinalities. Failures the store could not
// tie to an id are kept apart in Unattributed rather than silently dropped;
// they count toward neither map.
type Response struct {
	Successes    map[string]WriteAck     `json:"successes"`
	Errors       map[string]WriteFailure `json:"errors"`
	SuccessCount int                     `json:"successes_count"`
	ErrorCount   int                     `json:"errors_count"`
	Unattributed []WriteFailure          `json:"unattributed,omitempty"`
}

// Reconcile folds a store's raw per-document outcomes into a Response.
func Reconcile(outcomes []backend.WriteOutcome) Response {
	resp := Response{
		Successes: make(map[string]WriteAck, len(outcomes)),
		Errors:    make(map[string]WriteFailure),
	}

	for _, out := range outcomes {
		if out.Failed() {
			failure := WriteFailure{
				ID:      out.ID,
				Rev:     out.Rev,
				Status:  out.Err.Status,
				Message: out.Err.Message,
			}
			if out.ID == "" {
				resp.Unattributed = append(resp.Unattributed, failure)
				continue
			}
			resp.Errors[out.ID] = failure
			resp.ErrorCount++
			continue
		}
		if out.ID == "" {
			continue
		}
		resp.Successes[out.ID] = WriteAck{ID: out.ID, OK: true, Rev: out.Rev}
		resp.SuccessCount++
	}
	return resp
}

// SetDBGeneratedValues back-fills store-assigned revision tokens into the
// caller's documents. This mutates the documents in place: after a
// successful bulk write every document whose id appears in Successes
// carries its new revision without a re-fetch. Acks without a revision
// (deletes) leave the document untouched.
func SetDBGeneratedValues(resp Response, docs []document.Document) {
	for _, doc := range docs {
		ack, ok := resp.Successes[doc.ID()]
		if !ok || !ack.OK || ack.Rev == "" {
			continue
		}
		doc.SetRev(ack.Rev)
	}
}
