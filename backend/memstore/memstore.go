// Package memstore implements the docstore backend on an in-process map.
// It exists for embedding the plugin without a NATS deployment and for
// tests; adapter capability is composed in explicitly rather than installed
// as global state.
package memstore

import (
	"context"
	"strconv"
	"sync"

	"github.com/c360/docstore/backend"
	"github.com/c360/docstore/document"
)

// Opener hands out handles onto named in-memory stores. A store survives
// handle close (handles are opened fresh per operation) and disappears on
// Destroy.
type Opener struct {
	mu     sync.Mutex
	stores map[string]*store
}

// NewOpener returns an Opener with no stores; stores are created lazily on
// first Open.
func NewOpener() *Opener {
	return &Opener{stores: make(map[string]*store)}
}

// Open returns a fresh handle onto the named store, creating the store if
// it does not exist yet.
func (o *Opener) Open(_ context.Context, name string) (backend.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.stores[name]
	if !ok {
		s = &store{name: name, docs: make(map[string]document.Document)}
		o.stores[name] = s
	}
	return &handle{store: s, opener: o}, nil
}

func (o *Opener) drop(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.stores, name)
}

// store holds the live documents of one logical store. Stored documents
// always carry their current revision token.
type store struct {
	name string
	mu   sync.Mutex
	seq  uint64
	docs map[string]document.Document
}

// nextRev advances the store-wide revision counter. Callers hold s.mu.
func (s *store) nextRev() string {
	s.seq++
	return strconv.FormatUint(s.seq, 10)
}

type handle struct {
	store  *store
	opener *Opener

	mu     sync.Mutex
	closed bool
}

func (h *handle) live() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return backend.ErrHandleClosed
	}
	return nil
}

func (h *handle) Find(_ context.Context, selector map[string]any) ([]document.Document, error) {
	if err := h.live(); err != nil {
		return nil, err
	}

	s := h.store
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]document.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if backend.Matches(doc, selector) {
			docs = append(docs, doc.Clone())
		}
	}
	return docs, nil
}

func (h *handle) BulkGet(_ context.Context, ids []string) ([]backend.BulkGetResult, error) {
	if err := h.live(); err != nil {
		return nil, err
	}

	s := h.store
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]backend.BulkGetResult, 0, len(ids))
	for _, id := range ids {
		res := backend.BulkGetResult{ID: id}
		if doc, ok := s.docs[id]; ok {
			res.Docs = []document.Document{doc.Clone()}
		}
		results = append(results, res)
	}
	return results, nil
}

func (h *handle) BulkWrite(_ context.Context, docs []document.Document) ([]backend.WriteOutcome, error) {
	if err := h.live(); err != nil {
		return nil, err
	}

	s := h.store
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := make([]backend.WriteOutcome, 0, len(docs))
	for _, doc := range docs {
		outcomes = append(outcomes, s.apply(doc))
	}
	return outcomes, nil
}

// apply executes one write against the store. Data conditions come back as
// failed outcomes; only infrastructure problems (none here) would be errors.
// Callers hold s.mu.
func (s *store) apply(doc document.Document) backend.WriteOutcome {
	id := doc.ID()
	if id == "" {
		// No id to attribute the failure to; the outcome stays anonymous.
		return backend.WriteOutcome{
			Err: backend.NewStoreError(backend.StatusBadRequest, "document has no id"),
		}
	}

	current, exists := s.docs[id]
	rev := doc.Rev()

	switch {
	case doc.Deleted():
		if !exists {
			return failure(id, rev, backend.StatusNotFound, "document %q not found", id)
		}
		if rev != current.Rev() {
			return failure(id, rev, backend.StatusConflict, "revision mismatch deleting %q", id)
		}
		delete(s.docs, id)
		return backend.WriteOutcome{ID: id, Rev: s.nextRev(), OK: true}

	case rev == "":
		if exists {
			return failure(id, current.Rev(), backend.StatusConflict, "document %q already exists", id)
		}
		stored := doc.Clone()
		newRev := s.nextRev()
		stored.SetRev(newRev)
		s.docs[id] = stored
		return backend.WriteOutcome{ID: id, Rev: newRev, OK: true}

	default:
		if !exists {
			return failure(id, rev, backend.StatusNotFound, "document %q not found", id)
		}
		if rev != current.Rev() {
			return failure(id, rev, backend.StatusConflict, "revision mismatch updating %q", id)
		}
		stored := doc.Clone()
		newRev := s.nextRev()
		stored.SetRev(newRev)
		s.docs[id] = stored
		return backend.WriteOutcome{ID: id, Rev: newRev, OK: true}
	}
}

func failure(id, rev string, status int, format string, args ...any) backend.WriteOutcome {
	return backend.WriteOutcome{ID: id, Rev: rev, Err: backend.NewStoreError(status, format, args...)}
}

func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return backend.ErrHandleClosed
	}
	h.closed = true
	return nil
}

func (h *handle) Destroy(_ context.Context) error {
	if err := h.live(); err != nil {
		return err
	}

	h.opener.drop(h.store.name)

	// A destroyed handle is not closable.
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}
