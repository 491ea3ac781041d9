package document

import "fmt"

// RequiredFields are the identity fields a document must carry before it
// may be treated as already persisted or released from tracking.
var RequiredFields = []string{FieldID, FieldRev, FieldDocType}

// ValidationResult reports the outcome of a single required-field check.
type ValidationResult struct {
	Property string
	OK       bool
	Err      string
	Doc      Document
}

// Validate checks that the document carries every required identity field,
// producing one result per field in RequiredFields order. A field fails only
// when it is absent or nil; present falsy values like "" pass. No side
// effects.
func Validate(d Document) []ValidationResult {
	results := make([]ValidationResult, 0, len(RequiredFields))
	for _, field := range RequiredFields {
		r := ValidationResult{Property: field, OK: true, Doc: d}
		if !d.Has(field) {
			r.OK = false
			r.Err = fmt.Sprintf("document is missing required property %q: %s", field, d)
		}
		results = append(results, r)
	}
	return results
}

// Failures filters a validation run down to the failed checks.
func Failures(results []ValidationResult) []ValidationResult {
	var failed []ValidationResult
	for _, r := range results {
		if !r.OK {
			failed = append(failed, r)
		}
	}
	return failed
}
