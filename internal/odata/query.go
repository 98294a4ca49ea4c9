package odata

import (
	"net/url"
	"strconv"
	"strings"
)

// Query is a read against one table.
type Query struct {
	Table  string
	Filter Filter
	Select []Field
	// Top caps the number of rows returned. Zero leaves the cap to the server.
	Top int
}

// Encode renders the query string, without the leading '?'.
// Parameters are emitted in the order $filter, $select, $top.
func (q Query) Encode() string {
	var parts []string
	if !q.Filter.IsZero() {
		parts = append(parts, "$filter="+escapeValue(q.Filter.String()))
	}
	if len(q.Select) > 0 {
		names := make([]string, len(q.Select))
		for i, f := range q.Select {
			names[i] = string(f)
		}
		parts = append(parts, "$select="+escapeValue(strings.Join(names, ",")))
	}
	if q.Top > 0 {
		parts = append(parts, "$top="+strconv.Itoa(q.Top))
	}
	return strings.Join(parts, "&")
}

// escapeValue percent-encodes a query value. Spaces become %20 rather than
// '+', which the data platform does not decode inside $filter.
func escapeValue(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ParseSelect splits a comma separated field list as found in configuration.
// Blank entries are dropped.
func ParseSelect(csv string) []Field {
	var fields []Field
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			fields = append(fields, Field(part))
		}
	}
	return fields
}

// EnsureSelected returns fields with required appended unless it is already
// present (compared case-insensitively). An empty required is ignored.
func EnsureSelected(fields []Field, required Field) []Field {
	if required == "" {
		return fields
	}
	for _, f := range fields {
		if strings.EqualFold(string(f), string(required)) {
			return fields
		}
	}
	out := make([]Field, 0, len(fields)+1)
	out = append(out, fields...)
	return append(out, required)
}
