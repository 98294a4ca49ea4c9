package odata

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Rows is the "value" array of a query response. Rows are kept as raw JSON so
// formatted-value annotations and unknown columns pass through untouched.
type Rows []json.RawMessage

// MarshalJSON renders nil Rows as an empty array.
func (r Rows) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal([]json.RawMessage(r))
}

// Len returns the number of rows
func (r Rows) Len() int {
	return len(r)
}

// Strings returns the non-blank string values of field, in row order.
// Rows where the field is missing, null or not a string are skipped.
func (r Rows) Strings(field Field) []string {
	var out []string
	for _, row := range r {
		raw, ok := column(row, field)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// UniqueStrings is Strings with duplicates removed, ignoring case. The first
// spelling seen wins.
func (r Rows) UniqueStrings(field Field) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range r.Strings(field) {
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Scalar renders field of row i as text: strings as-is, numbers in their JSON
// form, booleans as "true"/"false". Anything else, including a missing
// column, yields ok == false.
func (r Rows) Scalar(i int, field Field) (string, bool) {
	if i < 0 || i >= len(r) {
		return "", false
	}
	raw, ok := column(r[i], field)
	if !ok {
		return "", false
	}
	return scalarText(raw)
}

// Decode unmarshals row i into a generic map, for callers that need to
// evaluate expressions over a whole row.
func (r Rows) Decode(i int) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(r[i], &m); err != nil {
		return nil, err
	}
	return m, nil
}

func column(row json.RawMessage, field Field) (json.RawMessage, bool) {
	var cols map[string]json.RawMessage
	if err := json.Unmarshal(row, &cols); err != nil {
		return nil, false
	}
	raw, ok := cols[string(field)]
	return raw, ok
}

func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", false
		}
		if b {
			return "true", true
		}
		return "false", true
	case 'n', '{', '[':
		return "", false
	default:
		return string(raw), true
	}
}

// decodeValue extracts the "value" array from a response body. ok is false
// when the body is valid JSON but has no array under "value".
func decodeValue(body []byte) (rows Rows, ok bool, err error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false, err
	}
	raw, present := envelope["value"]
	raw = bytes.TrimSpace(raw)
	if !present || len(raw) == 0 || raw[0] != '[' {
		return Rows{}, false, nil
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false, err
	}
	if rows == nil {
		rows = Rows{}
	}
	return rows, true, nil
}
