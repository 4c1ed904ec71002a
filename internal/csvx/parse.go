// Package csvx parses the comma-separated text Google Sheets publishes for
// "export as CSV" feeds.
package csvx

import (
	"strings"
)

// Row is one record keyed by header name. Values are always strings; type
// coercion belongs to consumers, not the cache layer.
type Row map[string]string

// Parse splits raw CSV text into headers and rows.
//
// The first line is the header row; every later line becomes one Row. A row
// with fewer fields than there are headers gets "" for the missing trailing
// columns; extra fields beyond the header count are ignored. Input with fewer
// than two lines yields empty headers and rows, which upstream callers treat
// as "nothing to parse yet", not as an error.
//
// Known limitation: fields are split on the raw comma with no quote handling,
// so a field containing a comma or an embedded newline will be misaligned.
// The published feeds this service ingests do not quote fields; switching to
// a quote-aware parser would silently change row counts on them.
func Parse(raw string) (headers []string, rows []Row) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) < 2 {
		return nil, nil
	}

	headers = make([]string, 0, 8)
	for _, h := range strings.Split(lines[0], ",") {
		headers = append(headers, strings.TrimSpace(h))
	}

	rows = make([]Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := strings.Split(line, ",")
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = strings.TrimSpace(values[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// Clone returns a deep copy of rows so callers can hand out data without
// sharing mutable state with the cache.
func Clone(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}
