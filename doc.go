// Package docstore is a storage-adapter plugin that bridges a generic
// document-database contract onto an underlying replicating document store.
//
// # Architecture
//
// The plugin consumes the store through a deliberately narrow operation set
// (open, close/destroy, bulk-write, bulk-read-by-id, find-by-selector) and
// normalizes the store's heterogeneous result and error shapes into a uniform
// response model:
//
//	┌─────────────────────────────────────┐
//	│            plugin.Plugin            │  admission, reconciliation,
//	│  (all, get, getStrict, bulk ops)    │  retry-with-backoff
//	└─────────────────────────────────────┘
//	           ↓ narrow contract
//	┌─────────────────────────────────────┐
//	│           backend.Handle            │  opened fresh per operation,
//	│   (find, bulkGet, bulkWrite, ...)   │  closed error taxonomy
//	└─────────────────────────────────────┘
//	           ↓ implemented by
//	┌──────────────────┬──────────────────┐
//	│  backend/natskv  │ backend/memstore │  JetStream KV bucket or
//	│                  │                  │  in-memory map
//	└──────────────────┴──────────────────┘
//
// # Packages
//
//   - document: the document model, identity-field validation, tombstone
//     shaping, and optional per-type JSON schemas
//   - backend: the store contract and the closed error taxonomy adapters
//     map native failures into
//   - backend/natskv: NATS JetStream KeyValue backend (revision tokens are
//     KV revisions)
//   - backend/memstore: in-memory backend for embedding and tests
//   - natsclient: NATS connection and KV bucket management
//   - plugin: the orchestrator exposed to the db-framework caller
//
// # Semantics worth knowing
//
// Bulk writes order removals first so a delete-then-recreate of the same id
// within one batch resolves as a create. After a successful bulk write the
// caller's documents are mutated in place to carry their new revision
// tokens. Transient store failures (status >= 500) are retried with a
// doubling backoff up to a fixed ceiling; everything else fails fast.
package docstore
