package odata

import "testing"

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"eq", Eq("_sgr_customer_value", "C1"), "_sgr_customer_value eq 'C1'"},
		{"escapes quotes", Eq("emailaddress1", "O'Brien@example.com"), "emailaddress1 eq 'O''Brien@example.com'"},
		{"injection stays inside the literal", Eq("f", "x' or 1 eq 1 or 'a"), "f eq 'x'' or 1 eq 1 or ''a'"},
		{"any eq", AnyEq("lookup", []string{"P1", "P2"}), "lookup eq 'P1' or lookup eq 'P2'"},
		{"any eq single", AnyEq("lookup", []string{"P1"}), "lookup eq 'P1'"},
		{"any eq empty", AnyEq("lookup", nil), ""},
		{"and", And(Eq("id", "P"), Eq("lookup", "C")), "id eq 'P' and lookup eq 'C'"},
		{"and of or nests", And(AnyEq("a", []string{"1", "2"}), Eq("b", "3")), "(a eq '1' or a eq '2') and b eq '3'"},
		{"or of or flattens", Or(AnyEq("a", []string{"1", "2"}), Eq("a", "3")), "a eq '1' or a eq '2' or a eq '3'"},
		{"zero filters skipped", And(Filter{}, Eq("a", "1"), Filter{}), "a eq '1'"},
		{"lone child kept as is", And(AnyEq("a", []string{"1", "2"})), "a eq '1' or a eq '2'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.String(); got != tt.want {
				t.Errorf("filter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilter_LoneChildNestsOnce(t *testing.T) {
	inner := And(AnyEq("a", []string{"1", "2"}))
	got := And(inner, Eq("b", "3")).String()
	want := "(a eq '1' or a eq '2') and b eq '3'"
	if got != want {
		t.Errorf("filter = %q, want %q", got, want)
	}
}

func TestFilter_IsZero(t *testing.T) {
	if !AnyEq("f", []string{}).IsZero() {
		t.Error("AnyEq over no values should be zero")
	}
	if Eq("f", "").IsZero() {
		t.Error("Eq against an empty string is still a comparison")
	}
}
