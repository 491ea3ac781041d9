// Package plugin is the orchestration layer of docstore: it opens backend
// handles per operation, enforces admission rules before mutations, retries
// transient write failures with exponential backoff, and reconciles the
// backend's raw per-document outcomes into a uniform response.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/docstore/backend"
	"github.com/c360/docstore/document"
)

// Plugin bridges the generic document contract to one named backend store.
// Handles are opened fresh per operation and never pooled, which keeps the
// plugin free of connection state between calls.
type Plugin struct {
	name    string
	opener  backend.Opener
	config  Config
	logger  *slog.Logger
	metrics *pluginMetrics
	schemas *document.SchemaRegistry

	// sleep is swapped out in tests to observe the backoff ladder.
	sleep func(context.Context, time.Duration) error
}

// Option configures a Plugin.
type Option func(*Plugin) error

// WithConfig overrides the default backoff configuration.
func WithConfig(cfg Config) Option {
	return func(p *Plugin) error {
		cfg.validate()
		p.config = cfg
		return nil
	}
}

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Plugin) error {
		if logger == nil {
			return fmt.Errorf("plugin: logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// WithMetrics registers plugin metrics with the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Plugin) error {
		m, err := newPluginMetrics(reg, p.name)
		if err != nil {
			return fmt.Errorf("plugin: register metrics: %w", err)
		}
		p.metrics = m
		return nil
	}
}

// WithSchemas enables per-type schema validation during addition admission.
func WithSchemas(registry *document.SchemaRegistry) Option {
	return func(p *Plugin) error {
		if registry == nil {
			return fmt.Errorf("plugin: schema registry cannot be nil")
		}
		p.schemas = registry
		return nil
	}
}

// New creates a Plugin over the named store.
func New(name string, opener backend.Opener, opts ...Option) (*Plugin, error) {
	if name == "" {
		return nil, fmt.Errorf("plugin: store name cannot be empty")
	}
	if opener == nil {
		return nil, fmt.Errorf("plugin: opener cannot be nil")
	}

	p := &Plugin{
		name:   name,
		opener: opener,
		config: DefaultConfig(),
		logger: slog.Default(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Name returns the logical store name the plugin operates on.
func (p *Plugin) Name() string { return p.name }

// All lists documents matching the selector; a nil selector matches every
// document. Listing is best-effort: a closed-handle error propagates, any
// other failure degrades to an empty result.
func (p *Plugin) All(ctx context.Context, selector map[string]any) (docs []document.Document, err error) {
	start := time.Now()
	defer func() { p.metrics.observe("all", start, err) }()

	handle, err := p.opener.Open(ctx, p.name)
	if err != nil {
		return p.degradeRead("all", err)
	}
	defer p.closeQuietly(handle)

	docs, err = handle.Find(ctx, selector)
	if err != nil {
		return p.degradeRead("all", err)
	}
	return docs, nil
}

// Get reads documents by id set with the same best-effort policy as All.
// The handle is left to expire with the call rather than closed explicitly,
// so a caller chaining reads on the same store does not race the close.
func (p *Plugin) Get(ctx context.Context, ids []string) (docs []document.Document, err error) {
	start := time.Now()
	defer func() { p.metrics.observe("get", start, err) }()

	handle, err := p.opener.Open(ctx, p.name)
	if err != nil {
		return p.degradeRead("get", err)
	}

	docs, err = handle.Find(ctx, map[string]any{document.FieldID: ids})
	if err != nil {
		return p.degradeRead("get", err)
	}
	return docs, nil
}

// GetStrict reads documents by id with no degradation: any per-id failure
// aborts the whole batch with the store's id and error attached. Missing
// ids are not failures, they are simply absent from the result. An empty id
// set resolves without touching the store.
func (p *Plugin) GetStrict(ctx context.Context, ids []string) (docs []document.Document, err error) {
	start := time.Now()
	defer func() { p.metrics.observe("get_strict", start, err) }()

	if len(ids) == 0 {
		return []document.Document{}, nil
	}

	handle, err := p.opener.Open(ctx, p.name)
	if err != nil {
		return nil, err
	}
	defer p.closeQuietly(handle)

	results, err := handle.BulkGet(ctx, ids)
	if err != nil {
		return nil, err
	}

	docs = make([]document.Document, 0, len(results))
	for _, res := range results {
		if res.Err != nil {
			return nil, fmt.Errorf("strict read of %q: %w", res.ID, res.Err)
		}
		docs = append(docs, res.Docs...)
	}
	return docs, nil
}

// BulkOperations writes removals, additions, and updates as one batch.
// Removals are shaped into tombstones and go first so a delete-then-recreate
// of the same id within the batch resolves as a create rather than a
// conflict. Transient store failures re-run the whole write against a fresh
// handle with exponential backoff. The reconciled response attributes every
// outcome; call SetDBGeneratedValues to back-fill new revision tokens into
// the caller's documents.
func (p *Plugin) BulkOperations(ctx context.Context, adds, removes, updates []document.Document) (resp Response, err error) {
	start := time.Now()
	defer func() { p.metrics.observe("bulk_operations", start, err) }()

	ordered := make([]document.Document, 0, len(removes)+len(adds)+len(updates))
	ordered = append(ordered, FormatDeletions(removes)...)
	ordered = append(ordered, adds...)
	ordered = append(ordered, updates...)

	outcomes, handle, err := execTx(ctx, p, func(ctx context.Context, h backend.Handle) ([]backend.WriteOutcome, error) {
		return h.BulkWrite(ctx, ordered)
	})
	if err != nil {
		return Response{}, err
	}
	p.closeQuietly(handle)

	resp = Reconcile(outcomes)
	if len(resp.Unattributed) > 0 {
		p.logger.Warn("Bulk write produced outcomes with no document id",
			"store", p.name,
			"count", len(resp.Unattributed))
	}
	p.metrics.reconcileResult(resp)
	return resp, nil
}

// Destroy deletes the underlying store and everything in it. The destroyed
// handle is not closable, so no close is attempted afterward.
func (p *Plugin) Destroy(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { p.metrics.observe("destroy", start, err) }()

	handle, err := p.opener.Open(ctx, p.name)
	if err != nil {
		return err
	}
	return handle.Destroy(ctx)
}

// degradeRead implements best-effort read semantics: closed-handle errors
// indicate a lifecycle bug and always propagate, anything else is logged
// and becomes an empty result.
func (p *Plugin) degradeRead(op string, err error) ([]document.Document, error) {
	if backend.IsHandleClosed(err) {
		return nil, err
	}
	p.logger.Warn("Read degraded to empty result",
		"store", p.name,
		"operation", op,
		"error", err)
	return []document.Document{}, nil
}

func (p *Plugin) closeQuietly(handle backend.Handle) {
	if err := handle.Close(); err != nil {
		p.logger.Debug("Closing handle", "store", p.name, "error", err)
	}
}
