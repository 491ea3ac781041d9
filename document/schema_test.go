package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderSchema = `{
	"type": "object",
	"required": ["total"],
	"properties": {
		"total": {"type": "number", "minimum": 0}
	}
}`

func TestSchemaRegistry(t *testing.T) {
	reg := NewSchemaRegistry()
	require.NoError(t, reg.Register("order", []byte(orderSchema)))

	t.Run("valid document passes", func(t *testing.T) {
		doc := New("order")
		doc["total"] = 12.5
		assert.NoError(t, reg.Validate(doc))
	})

	t.Run("schema violation is reported", func(t *testing.T) {
		doc := New("order")
		doc["total"] = -1.0
		err := reg.Validate(doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "order")
	})

	t.Run("missing required property fails", func(t *testing.T) {
		doc := New("order")
		assert.Error(t, reg.Validate(doc))
	})

	t.Run("unregistered type passes untouched", func(t *testing.T) {
		doc := New("invoice")
		assert.NoError(t, reg.Validate(doc))
	})
}

func TestSchemaRegistryRejectsBadInput(t *testing.T) {
	reg := NewSchemaRegistry()

	assert.Error(t, reg.Register("", []byte(orderSchema)), "empty document type")
	assert.Error(t, reg.Register("order", []byte(`{"type": 42}`)), "invalid schema")
}
