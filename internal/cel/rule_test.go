package cel

import (
	"testing"
)

func TestCompileRowRule(t *testing.T) {
	t.Run("rejects invalid syntax", func(t *testing.T) {
		if _, err := CompileRowRule("row.sgr_stage =="); err == nil {
			t.Error("expected compile error")
		}
	})

	t.Run("rejects non-bool output", func(t *testing.T) {
		if _, err := CompileRowRule(`"stage"`); err == nil {
			t.Error("expected type error")
		}
	})

	t.Run("rejects unknown variables", func(t *testing.T) {
		if _, err := CompileRowRule(`claims.sub == "x"`); err == nil {
			t.Error("expected undeclared reference error")
		}
	})
}

func TestRowRule_Eval(t *testing.T) {
	tests := []struct {
		name string
		expr string
		row  map[string]any
		want bool
	}{
		{
			name: "fieldEquals string",
			expr: `fieldEquals(row, "sgr_stage", "1")`,
			row:  map[string]any{"sgr_stage": "1"},
			want: true,
		},
		{
			name: "fieldEquals number against string",
			expr: `fieldEquals(row, "sgr_stage", "1")`,
			row:  map[string]any{"sgr_stage": float64(1)},
			want: true,
		},
		{
			name: "fieldEquals int literal",
			expr: `fieldEquals(row, "sgr_stage", 3)`,
			row:  map[string]any{"sgr_stage": float64(3)},
			want: true,
		},
		{
			name: "fieldEquals bool ignores case",
			expr: `fieldEquals(row, "sgr_enabled", "TRUE")`,
			row:  map[string]any{"sgr_enabled": true},
			want: true,
		},
		{
			name: "fieldEquals missing column",
			expr: `fieldEquals(row, "sgr_stage", "1")`,
			row:  map[string]any{},
			want: false,
		},
		{
			name: "fieldEquals null column",
			expr: `fieldEquals(row, "sgr_stage", "1")`,
			row:  map[string]any{"sgr_stage": nil},
			want: false,
		},
		{
			name: "hasField",
			expr: `hasField(row, "sgr_stage") && !hasField(row, "sgr_other")`,
			row:  map[string]any{"sgr_stage": "2", "sgr_other": nil},
			want: true,
		},
		{
			name: "combined with formatted value annotation",
			expr: `fieldEquals(row, "sgr_stage", "4") || safeToString(row["sgr_stage@OData.Community.Display.V1.FormattedValue"]) == "Handover"`,
			row: map[string]any{
				"sgr_stage": float64(5),
				"sgr_stage@OData.Community.Display.V1.FormattedValue": "Handover",
			},
			want: true,
		},
		{
			name: "safeToString of number",
			expr: `safeToString(row.sgr_stage) == "2"`,
			row:  map[string]any{"sgr_stage": float64(2)},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := CompileRowRule(tt.expr)
			if err != nil {
				t.Fatalf("CompileRowRule() error = %v", err)
			}
			got, err := rule.Eval(tt.row)
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("missing key in direct access is an error", func(t *testing.T) {
		rule, err := CompileRowRule(`row.sgr_stage == "1"`)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := rule.Eval(map[string]any{}); err == nil {
			t.Error("expected evaluation error for missing key")
		}
	})
}

func TestScalarText(t *testing.T) {
	tests := []struct {
		in   any
		want string
		ok   bool
	}{
		{"abc", "abc", true},
		{float64(1), "1", true},
		{float64(1.5), "1.5", true},
		{int64(7), "7", true},
		{true, "true", true},
		{nil, "", false},
		{map[string]any{}, "", false},
	}
	for _, tt := range tests {
		got, ok := ScalarText(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ScalarText(%v) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
