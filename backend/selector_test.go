package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/docstore/document"
)

func TestMatches(t *testing.T) {
	doc := document.Document{
		"id":      "doc-1",
		"docType": "order",
		"total":   42.5,
	}

	tests := []struct {
		name     string
		selector map[string]any
		want     bool
	}{
		{name: "nil selector matches everything", selector: nil, want: true},
		{name: "empty selector matches everything", selector: map[string]any{}, want: true},
		{name: "single field equality", selector: map[string]any{"docType": "order"}, want: true},
		{name: "mismatched value", selector: map[string]any{"docType": "invoice"}, want: false},
		{name: "missing field", selector: map[string]any{"region": "eu"}, want: false},
		{name: "all fields must match", selector: map[string]any{"docType": "order", "total": 1.0}, want: false},
		{name: "id-set membership", selector: map[string]any{"id": []string{"doc-0", "doc-1"}}, want: true},
		{name: "id-set miss", selector: map[string]any{"id": []string{"doc-2"}}, want: false},
		{name: "empty id-set matches nothing", selector: map[string]any{"id": []string{}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(doc, tt.selector))
		})
	}
}
