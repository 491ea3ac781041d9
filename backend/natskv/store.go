// Package natskv implements the docstore backend on a NATS JetStream
// KeyValue bucket. Documents are stored as JSON under their id; revision
// tokens are the bucket's entry revisions, so compare-and-swap on the
// bucket gives the optimistic concurrency the plugin contract expects,
// and the bucket's replication provides the durability story.
package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/docstore/backend"
	"github.com/c360/docstore/document"
	"github.com/c360/docstore/natsclient"
)

// Opener opens handles onto JetStream KV buckets, one bucket per logical
// store name.
type Opener struct {
	client  natsClient
	config  Config
	logger  *slog.Logger
	metrics *storeMetrics
}

// natsClient is the slice of natsclient.Client this backend needs. Narrowed
// to an interface so unit tests can stand in for a live server.
type natsClient interface {
	CreateKeyValueBucket(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error)
	DeleteKeyValueBucket(ctx context.Context, name string) error
}

// OpenerOption configures an Opener.
type OpenerOption func(*Opener) error

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) OpenerOption {
	return func(o *Opener) error {
		if logger == nil {
			return fmt.Errorf("natskv: logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithMetrics registers backend metrics with the given registerer.
func WithMetrics(reg prometheus.Registerer) OpenerOption {
	return func(o *Opener) error {
		m, err := newStoreMetrics(reg, o.config.BucketPrefix)
		if err != nil {
			return fmt.Errorf("natskv: register metrics: %w", err)
		}
		o.metrics = m
		return nil
	}
}

// NewOpener creates an Opener over a connected NATS client.
func NewOpener(client natsClient, cfg Config, opts ...OpenerOption) (*Opener, error) {
	if client == nil {
		return nil, fmt.Errorf("natskv: client cannot be nil")
	}
	cfg.validate()

	o := &Opener{
		client: client,
		config: cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Open creates or binds the bucket for the named store and returns a fresh
// handle onto it.
func (o *Opener) Open(ctx context.Context, name string) (backend.Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	bucketName := o.config.BucketPrefix + name
	bucket, err := o.client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: o.config.Description,
		History:     o.config.History,
		Replicas:    o.config.Replicas,
	})
	if err != nil {
		return nil, asStoreError("open bucket "+bucketName, err)
	}

	return &Store{
		bucket:     bucket,
		bucketName: bucketName,
		client:     o.client,
		config:     o.config,
		logger:     o.logger,
		metrics:    o.metrics,
	}, nil
}

// Store is one open handle onto a KV bucket.
type Store struct {
	bucket     jetstream.KeyValue
	bucketName string
	client     natsClient
	config     Config
	logger     *slog.Logger
	metrics    *storeMetrics

	closed atomic.Bool
}

func (s *Store) live() error {
	if s.closed.Load() {
		return backend.ErrHandleClosed
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.Timeout)
}

// Find lists every key in the bucket and filters by the selector. Linear in
// bucket size: selector queries lean on the bucket staying modest, richer
// querying belongs to an indexed store.
func (s *Store) Find(ctx context.Context, selector map[string]any) (docs []document.Document, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("find", start, err) }()

	if err = s.live(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []document.Document{}, nil
		}
		return nil, asStoreError("list keys", err)
	}

	docs = make([]document.Document, 0, len(keys))
	for _, key := range keys {
		entry, getErr := s.bucket.Get(ctx, key)
		if getErr != nil {
			if isMissing(getErr) {
				continue // deleted between Keys and Get
			}
			err = asStoreError("get "+key, getErr)
			return nil, err
		}
		doc, decErr := decodeEntry(entry)
		if decErr != nil {
			err = decErr
			return nil, err
		}
		if backend.Matches(doc, selector) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// BulkGet reads one result per id. Missing ids yield empty results; only
// real read failures carry an error.
func (s *Store) BulkGet(ctx context.Context, ids []string) (results []backend.BulkGetResult, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("bulk_get", start, err) }()

	if err = s.live(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	results = make([]backend.BulkGetResult, 0, len(ids))
	for _, id := range ids {
		res := backend.BulkGetResult{ID: id}
		entry, getErr := s.bucket.Get(ctx, id)
		switch {
		case getErr == nil:
			doc, decErr := decodeEntry(entry)
			if decErr != nil {
				res.Err = backend.NewStoreError(backend.StatusInternal, "decode %q: %v", id, decErr)
			} else {
				res.Docs = []document.Document{doc}
			}
		case isMissing(getErr):
			// Not an error: the id simply has no live document.
		default:
			res.Err = storeErrorFor(getErr, "get "+id)
		}
		results = append(results, res)
	}
	return results, nil
}

// BulkWrite applies each document in order. Conflicts and missing targets
// become per-document failed outcomes; infrastructure failures abort the
// whole call so the retry layer can re-run it.
func (s *Store) BulkWrite(ctx context.Context, docs []document.Document) (outcomes []backend.WriteOutcome, err error) {
	start := time.Now()
	defer func() { s.metrics.observe("bulk_write", start, err) }()

	if err = s.live(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	outcomes = make([]backend.WriteOutcome, 0, len(docs))
	for _, doc := range docs {
		outcome, writeErr := s.applyWrite(ctx, doc)
		if writeErr != nil {
			return nil, writeErr
		}
		if outcome.Failed() {
			s.metrics.writeOutcome(resultLabel(outcome.Err.Status))
		} else {
			s.metrics.writeOutcome("ok")
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// applyWrite executes one create, update, or delete. The error return is
// reserved for infrastructure failures.
func (s *Store) applyWrite(ctx context.Context, doc document.Document) (backend.WriteOutcome, error) {
	id := doc.ID()
	if id == "" {
		return backend.WriteOutcome{
			Err: backend.NewStoreError(backend.StatusBadRequest, "document has no id"),
		}, nil
	}

	rev := doc.Rev()

	if doc.Deleted() {
		if rev == "" {
			return failedOutcome(id, rev, backend.StatusConflict, "deleting %q requires a revision token", id), nil
		}
		revNum, err := parseRev(rev)
		if err != nil {
			return failedOutcome(id, rev, backend.StatusBadRequest, "bad revision token %q", rev), nil
		}
		if err := s.bucket.Delete(ctx, id, jetstream.LastRevision(revNum)); err != nil {
			return s.writeFailure(id, rev, err)
		}
		return backend.WriteOutcome{ID: id, OK: true}, nil
	}

	data, err := encodeDoc(doc)
	if err != nil {
		return failedOutcome(id, rev, backend.StatusBadRequest, "encode %q: %v", id, err), nil
	}

	if rev == "" {
		newRev, err := s.bucket.Create(ctx, id, data)
		if err != nil {
			return s.writeFailure(id, rev, err)
		}
		return backend.WriteOutcome{ID: id, Rev: formatRev(newRev), OK: true}, nil
	}

	revNum, err := parseRev(rev)
	if err != nil {
		return failedOutcome(id, rev, backend.StatusBadRequest, "bad revision token %q", rev), nil
	}
	newRev, err := s.bucket.Update(ctx, id, data, revNum)
	if err != nil {
		return s.writeFailure(id, rev, err)
	}
	return backend.WriteOutcome{ID: id, Rev: formatRev(newRev), OK: true}, nil
}

// writeFailure turns a per-document KV error into an outcome when it is a
// data condition, or into a call error when the store itself misbehaved.
func (s *Store) writeFailure(id, rev string, err error) (backend.WriteOutcome, error) {
	switch {
	case isConflict(err):
		return failedOutcome(id, rev, backend.StatusConflict, "conflict writing %q: %v", id, err), nil
	case isMissing(err):
		return failedOutcome(id, rev, backend.StatusNotFound, "document %q not found", id), nil
	default:
		return backend.WriteOutcome{}, asStoreError("write "+id, err)
	}
}

// Close marks the handle closed. The bucket binding itself is lightweight;
// nothing needs releasing on the server.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return backend.ErrHandleClosed
	}
	return nil
}

// Destroy deletes the bucket and everything in it. The handle is unusable
// afterward and not closable.
func (s *Store) Destroy(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.metrics.observe("destroy", start, err) }()

	if err = s.live(); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.closed.Store(true)
	if err = s.client.DeleteKeyValueBucket(ctx, s.bucketName); err != nil {
		return asStoreError("destroy bucket "+s.bucketName, err)
	}
	s.logger.Debug("Destroyed bucket", "bucket", s.bucketName)
	return nil
}

// encodeDoc serializes a document without its revision token; the bucket
// revision is authoritative and would go stale inside the payload.
func encodeDoc(doc document.Document) ([]byte, error) {
	stored := doc.Clone()
	stored.ClearRev()
	return json.Marshal(stored)
}

// decodeEntry deserializes an entry and stamps the live revision token on.
func decodeEntry(entry jetstream.KeyValueEntry) (document.Document, error) {
	var doc document.Document
	if err := json.Unmarshal(entry.Value(), &doc); err != nil {
		return nil, backend.NewStoreError(backend.StatusInternal, "decode %q: %v", entry.Key(), err)
	}
	doc.SetRev(formatRev(entry.Revision()))
	return doc, nil
}

func formatRev(rev uint64) string { return strconv.FormatUint(rev, 10) }

func parseRev(rev string) (uint64, error) { return strconv.ParseUint(rev, 10, 64) }

func failedOutcome(id, rev string, status int, format string, args ...any) backend.WriteOutcome {
	return backend.WriteOutcome{ID: id, Rev: rev, Err: backend.NewStoreError(status, format, args...)}
}

func resultLabel(status int) string {
	switch status {
	case backend.StatusConflict:
		return "conflict"
	case backend.StatusNotFound:
		return "not_found"
	default:
		return "other"
	}
}

func isMissing(err error) bool { return natsclient.IsKVNotFoundError(err) }

func isConflict(err error) bool { return natsclient.IsKVConflictError(err) }

// asStoreError maps an infrastructure failure into the closed taxonomy:
// connectivity and timeout conditions are transient (503), anything else is
// a plain server-side failure (500).
func asStoreError(op string, err error) *backend.StoreError {
	return storeErrorFor(err, op)
}

func storeErrorFor(err error, op string) *backend.StoreError {
	status := backend.StatusInternal
	if errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, natsclient.ErrNotConnected) ||
		errors.Is(err, context.DeadlineExceeded) {
		status = backend.StatusUnavailable
	}
	return backend.NewStoreError(status, "%s: %v", op, err)
}
