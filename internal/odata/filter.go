// Package odata talks to the data platform's OData REST endpoint.
//
// Filters are built from Field names taken from configuration and string
// values that are always escaped by the builder. There is no way to create a
// Filter from a raw expression string, so user-controlled values cannot reach
// the query unescaped.
package odata

import "strings"

// Field is a column name in a data platform table. Field names come from
// configuration, never from request input.
type Field string

// Filter is a $filter expression. The zero Filter matches nothing and is
// never sent; callers check IsZero and skip the query instead.
type Filter struct {
	expr string
	op   string // "" for a single comparison, otherwise "or" / "and"
}

// Escape doubles single quotes so value can be embedded in a string literal.
func Escape(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// Eq builds "field eq 'value'" with value escaped.
func Eq(field Field, value string) Filter {
	return Filter{expr: string(field) + " eq '" + Escape(value) + "'"}
}

// Or joins filters with "or". Zero filters are skipped.
func Or(filters ...Filter) Filter {
	return join("or", filters)
}

// And joins filters with "and". Zero filters are skipped.
func And(filters ...Filter) Filter {
	return join("and", filters)
}

// AnyEq builds an OR of Eq(field, v) for every value. It returns the zero
// Filter when values is empty.
func AnyEq(field Field, values []string) Filter {
	filters := make([]Filter, 0, len(values))
	for _, v := range values {
		filters = append(filters, Eq(field, v))
	}
	return Or(filters...)
}

func join(op string, filters []Filter) Filter {
	var kept []Filter
	for _, f := range filters {
		if !f.IsZero() {
			kept = append(kept, f)
		}
	}
	switch len(kept) {
	case 0:
		return Filter{}
	case 1:
		return kept[0]
	}

	parts := make([]string, 0, len(kept))
	for _, f := range kept {
		if f.op != "" && f.op != op {
			parts = append(parts, "("+f.expr+")")
			continue
		}
		parts = append(parts, f.expr)
	}
	return Filter{expr: strings.Join(parts, " "+op+" "), op: op}
}

// IsZero reports whether the filter is empty
func (f Filter) IsZero() bool {
	return f.expr == ""
}

// String returns the filter expression as sent in $filter
func (f Filter) String() string {
	return f.expr
}
