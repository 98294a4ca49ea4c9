package odata

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestQuery_Encode(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{
			name:  "filter and select",
			query: Query{Table: "contacts", Filter: Eq("prithu_b2cobjectid", "X"), Select: []Field{"contactid"}},
			want:  "$filter=prithu_b2cobjectid%20eq%20%27X%27&$select=contactid",
		},
		{
			name:  "top only",
			query: Query{Table: "sgr_productsets", Top: 5000},
			want:  "$top=5000",
		},
		{
			name:  "select list and top",
			query: Query{Table: "sgr_projects", Filter: Eq("_sgr_customer_value", "C1"), Select: []Field{"sgr_stage", "sgr_name"}, Top: 50},
			want:  "$filter=_sgr_customer_value%20eq%20%27C1%27&$select=sgr_stage%2Csgr_name&$top=50",
		},
		{
			name:  "empty",
			query: Query{Table: "contacts"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Encode(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSelect(t *testing.T) {
	got := ParseSelect(" sgr_name, ,sgr_stage ,")
	want := []Field{"sgr_name", "sgr_stage"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSelect() = %v, want %v", got, want)
	}
	if ParseSelect("  ") != nil {
		t.Error("blank select should parse to nil")
	}
}

func TestEnsureSelected(t *testing.T) {
	t.Run("appends missing field", func(t *testing.T) {
		got := EnsureSelected([]Field{"sgr_name"}, "_sgr_productset_value")
		want := []Field{"sgr_name", "_sgr_productset_value"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("keeps present field regardless of case", func(t *testing.T) {
		got := EnsureSelected([]Field{"_SGR_PRODUCTSET_VALUE"}, "_sgr_productset_value")
		if len(got) != 1 {
			t.Errorf("got %v, want a single field", got)
		}
	})

	t.Run("no select becomes the required field", func(t *testing.T) {
		got := EnsureSelected(nil, "_sgr_productset_value")
		if !reflect.DeepEqual(got, []Field{"_sgr_productset_value"}) {
			t.Errorf("got %v", got)
		}
	})
}

func TestRows(t *testing.T) {
	rows := Rows{
		json.RawMessage(`{"id":"A","stage":1,"flag":true}`),
		json.RawMessage(`{"id":"a","stage":"Open","flag":false}`),
		json.RawMessage(`{"id":"  ","stage":null}`),
		json.RawMessage(`{"id":"B","stage":{"nested":1}}`),
		json.RawMessage(`{"other":"x"}`),
	}

	t.Run("strings skip blank and missing", func(t *testing.T) {
		want := []string{"A", "a", "B"}
		if got := rows.Strings("id"); !reflect.DeepEqual(got, want) {
			t.Errorf("Strings() = %v, want %v", got, want)
		}
	})

	t.Run("unique strings ignore case", func(t *testing.T) {
		want := []string{"A", "B"}
		if got := rows.UniqueStrings("id"); !reflect.DeepEqual(got, want) {
			t.Errorf("UniqueStrings() = %v, want %v", got, want)
		}
	})

	t.Run("scalar", func(t *testing.T) {
		cases := []struct {
			row   int
			field Field
			want  string
			ok    bool
		}{
			{0, "stage", "1", true},
			{0, "flag", "true", true},
			{1, "stage", "Open", true},
			{1, "flag", "false", true},
			{2, "stage", "", false},
			{3, "stage", "", false},
			{4, "stage", "", false},
			{9, "stage", "", false},
		}
		for _, c := range cases {
			got, ok := rows.Scalar(c.row, c.field)
			if got != c.want || ok != c.ok {
				t.Errorf("Scalar(%d, %s) = (%q, %v), want (%q, %v)", c.row, c.field, got, ok, c.want, c.ok)
			}
		}
	})

	t.Run("nil rows marshal as empty array", func(t *testing.T) {
		var empty Rows
		b, err := json.Marshal(empty)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != "[]" {
			t.Errorf("Marshal(nil) = %s, want []", b)
		}
	})

	t.Run("rows marshal verbatim", func(t *testing.T) {
		b, err := json.Marshal(Rows{json.RawMessage(`{"id":"A"}`)})
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != `[{"id":"A"}]` {
			t.Errorf("Marshal() = %s", b)
		}
	})
}
