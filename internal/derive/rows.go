// Package derive holds the recompute functions that keep derived request
// fields (trailing rows, query string, auth headers) consistent with the
// fields they are computed from. Every function takes a value and returns a
// new value; none of them touch shared state.
package derive

import (
	"strings"

	"github.com/funnyzak/reqkit/pkg/request"
)

// NormalizeRows collapses each run of consecutive blank rows to its first
// row and makes sure the list ends with exactly one blank row. A fresh
// trailing row is disabled and gets an id with prefix.
func NormalizeRows(rows []request.KeyValue, prefix string) []request.KeyValue {
	out := make([]request.KeyValue, 0, len(rows)+1)
	for _, row := range rows {
		if row.Blank() && len(out) > 0 && out[len(out)-1].Blank() {
			continue
		}
		out = append(out, row)
	}
	if len(out) == 0 || !out[len(out)-1].Blank() {
		out = append(out, request.NewRow(prefix))
	}
	return out
}

// EditRow sets key and value on row. A disabled row becomes enabled as soon
// as either field is non-blank; clearing the fields never disables it.
func EditRow(row request.KeyValue, key, value string) request.KeyValue {
	row.Key = key
	row.Value = value
	if !row.Enabled && (strings.TrimSpace(key) != "" || strings.TrimSpace(value) != "") {
		row.Enabled = true
	}
	return row
}

// InsertBeforeTrailing places row after the last non-blank row.
func InsertBeforeTrailing(rows []request.KeyValue, row request.KeyValue) []request.KeyValue {
	at := len(rows)
	for at > 0 && rows[at-1].Blank() {
		at--
	}
	out := make([]request.KeyValue, 0, len(rows)+1)
	out = append(out, rows[:at]...)
	out = append(out, row)
	out = append(out, rows[at:]...)
	return out
}
