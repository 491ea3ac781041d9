package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/docstore/backend"
	"github.com/c360/docstore/document"
)

func TestReconcile(t *testing.T) {
	outcomes := []backend.WriteOutcome{
		{ID: "a", Rev: "1", OK: true},
		{ID: "b", Err: backend.NewStoreError(backend.StatusConflict, "revision mismatch")},
		{ID: "c", Rev: "2", OK: true},
		{Err: backend.NewStoreError(backend.StatusBadRequest, "document has no id")},
	}

	resp := Reconcile(outcomes)

	assert.Equal(t, 2, resp.SuccessCount)
	assert.Equal(t, 1, resp.ErrorCount)
	assert.Len(t, resp.Successes, resp.SuccessCount, "counts equal map cardinality")
	assert.Len(t, resp.Errors, resp.ErrorCount)

	assert.Equal(t, WriteAck{ID: "a", OK: true, Rev: "1"}, resp.Successes["a"])
	assert.Equal(t, WriteAck{ID: "c", OK: true, Rev: "2"}, resp.Successes["c"])
	require.Contains(t, resp.Errors, "b")
	assert.Equal(t, backend.StatusConflict, resp.Errors["b"].Status)
	assert.Equal(t, "revision mismatch", resp.Errors["b"].Message)

	require.Len(t, resp.Unattributed, 1, "id-less failures are surfaced, not dropped")
	assert.Equal(t, backend.StatusBadRequest, resp.Unattributed[0].Status)
}

func TestReconcileAccountsForEveryOutcome(t *testing.T) {
	outcomes := []backend.WriteOutcome{
		{ID: "a", Rev: "1", OK: true},
		{ID: "b", Err: backend.NewStoreError(backend.StatusNotFound, "missing")},
		{Err: backend.NewStoreError(backend.StatusBadRequest, "no id")},
		{ID: "d", Rev: "2", OK: true},
		{Err: backend.NewStoreError(backend.StatusBadRequest, "no id either")},
	}

	resp := Reconcile(outcomes)

	assert.Equal(t, len(outcomes), resp.SuccessCount+resp.ErrorCount+len(resp.Unattributed))
	for id := range resp.Successes {
		assert.NotContains(t, resp.Errors, id, "maps are keyed disjointly")
	}
}

func TestReconcileEmpty(t *testing.T) {
	resp := Reconcile(nil)

	assert.Zero(t, resp.SuccessCount)
	assert.Zero(t, resp.ErrorCount)
	assert.Empty(t, resp.Unattributed)
	assert.NotNil(t, resp.Successes)
	assert.NotNil(t, resp.Errors)
}

func TestSetDBGeneratedValues(t *testing.T) {
	succeeded := document.Document{document.FieldID: "a", document.FieldRev: "1", document.FieldDocType: "order"}
	failed := document.Document{document.FieldID: "b", document.FieldRev: "1", document.FieldDocType: "order"}
	absent := document.Document{document.FieldID: "c", document.FieldDocType: "order"}

	resp := Reconcile([]backend.WriteOutcome{
		{ID: "a", Rev: "2", OK: true},
		{ID: "b", Err: backend.NewStoreError(backend.StatusConflict, "revision mismatch")},
	})

	SetDBGeneratedValues(resp, []document.Document{succeeded, failed, absent})

	assert.Equal(t, "2", succeeded.Rev(), "success entries back-fill in place")
	assert.Equal(t, "1", failed.Rev(), "failed writes leave the revision alone")
	assert.False(t, absent.Has(document.FieldRev), "documents without a success entry stay untouched")
}

func TestSetDBGeneratedValuesSkipsRevlessAcks(t *testing.T) {
	doc := document.Document{document.FieldID: "a", document.FieldRev: "3", document.FieldDocType: "order"}

	// Deletes can acknowledge without assigning a revision.
	resp := Reconcile([]backend.WriteOutcome{{ID: "a", OK: true}})
	SetDBGeneratedValues(resp, []document.Document{doc})

	assert.Equal(t, "3", doc.Rev())
}
