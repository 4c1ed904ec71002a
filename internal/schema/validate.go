// Package schema checks parsed CSV headers against each report's expected
// column set. Validation is column-name based only: data content and types
// are never inspected.
package schema

// Result is the outcome of validating one report's headers.
//
// OK is true iff Missing is empty and a schema was registered. Extra columns
// are informational and never invalidate.
type Result struct {
	OK bool `json:"ok"`

	// NoSchema is set when the report has no registered schema; callers can
	// distinguish "absence of schema" from "schema violation".
	NoSchema bool `json:"noSchema,omitempty"`

	Missing  []string `json:"missing"`
	Extra    []string `json:"extra"`
	Expected []string `json:"expected,omitempty"`
	Actual   []string `json:"actual,omitempty"`
}

// Validate compares the observed headers against the expected columns.
// Pass hasSchema=false when no schema is registered for the report.
func Validate(expected []string, headers []string, hasSchema bool) Result {
	if !hasSchema {
		return Result{
			OK:       false,
			NoSchema: true,
			Missing:  []string{},
			Extra:    append([]string(nil), headers...),
			Actual:   headers,
		}
	}

	have := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		have[h] = struct{}{}
	}
	want := make(map[string]struct{}, len(expected))
	for _, c := range expected {
		want[c] = struct{}{}
	}

	missing := []string{}
	for _, c := range expected {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	extra := []string{}
	for _, h := range headers {
		if _, ok := want[h]; !ok {
			extra = append(extra, h)
		}
	}

	return Result{
		OK:       len(missing) == 0,
		Missing:  missing,
		Extra:    extra,
		Expected: expected,
		Actual:   headers,
	}
}
