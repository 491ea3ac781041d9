package document

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaRegistry holds optional JSON schemas keyed by document type. Types
// without a registered schema are accepted untouched, so the registry only
// tightens admission where a schema exists.
//
// Safe for concurrent use.
type SchemaRegistry struct {
	mu      sync.RWMutex
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaRegistry returns an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{schemas: make(map[string]*gojsonschema.Schema)}
}

// Register compiles and stores a schema for the document type, replacing any
// previous one.
func (r *SchemaRegistry) Register(docType string, schemaJSON []byte) error {
	if docType == "" {
		return fmt.Errorf("schema registry: document type cannot be empty")
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return fmt.Errorf("schema registry: compile schema for %q: %w", docType, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[docType] = schema
	return nil
}

// Validate checks the document against the schema registered for its type.
// Returns nil when no schema is registered for the type.
func (r *SchemaRegistry) Validate(d Document) error {
	r.mu.RLock()
	schema, ok := r.schemas[d.DocType()]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(map[string]any(d)))
	if err != nil {
		return fmt.Errorf("schema validation of %q: %w", d.ID(), err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}
	return fmt.Errorf("document %q failed schema for type %q: %s",
		d.ID(), d.DocType(), strings.Join(details, "; "))
}
