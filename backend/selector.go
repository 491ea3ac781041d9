package backend

import (
	"reflect"

	"github.com/c360/docstore/document"
)

// Matches reports whether the document satisfies the selector. A nil or
// empty selector matches everything. Each selector entry must be satisfied:
// a slice value matches when the document field equals any element (an
// id-set lookup), any other value is compared for deep equality. Richer
// query operators belong to the store itself.
func Matches(d document.Document, selector map[string]any) bool {
	for field, want := range selector {
		got, ok := d[field]
		if !ok {
			return false
		}

		rv := reflect.ValueOf(want)
		if rv.Kind() == reflect.Slice {
			found := false
			for i := 0; i < rv.Len(); i++ {
				if reflect.DeepEqual(got, rv.Index(i).Interface()) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}

		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
