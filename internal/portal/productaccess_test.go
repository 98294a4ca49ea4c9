package portal

import (
	"net/http"
	"strings"
	"testing"
)

func TestService_ProductAccess(t *testing.T) {
	tests := []struct {
		name    string
		stage   any
		allowed string
		rule    string
		want    bool
	}{
		{name: "string value", stage: "1", allowed: "1", want: true},
		{name: "number value", stage: float64(1), allowed: "1", want: true},
		{name: "boolean value", stage: true, allowed: "True", want: true},
		{name: "case-insensitive", stage: "Approved", allowed: "approved", want: true},
		{name: "no match", stage: float64(0), allowed: "1", want: false},
		{name: "null value", stage: nil, allowed: "1", want: false},
		{name: "rule match", stage: float64(3), rule: `fieldEquals(row, "sgr_stage", 3) || fieldEquals(row, "sgr_stage", 4)`, want: true},
		{name: "rule no match", stage: float64(1), rule: `fieldEquals(row, "sgr_stage", 3)`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := newFakePlatform().add("sgr_projects",
				map[string]any{"sgr_projectid": "P1", "_sgr_customer_value": "C1", "sgr_stage": tt.stage},
			)
			env := newTestEnv(t, platform, func(cfg *Config) {
				if tt.allowed != "" {
					cfg.Tables.ProductAccess.AllowedValue = tt.allowed
				}
				cfg.Tables.ProductAccess.Rule = tt.rule
			})

			resp := get(t, env, "productaccess")
			result, ok := resp.Body.(AccessResult)
			if !ok {
				t.Fatalf("body = %T", resp.Body)
			}
			if result.HasAccess != tt.want {
				t.Errorf("HasAccess = %v, want %v", result.HasAccess, tt.want)
			}
		})
	}
}

func TestService_ProductAccessQuery(t *testing.T) {
	env := newTestEnv(t, newFakePlatform(), nil)
	get(t, env, "productaccess")

	calls := env.reads("sgr_projects")
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	url := calls[0].URL
	for _, want := range []string{"$select=sgr_stage", "$top=50", "_sgr_customer_value%20eq%20%27C1%27"} {
		if !strings.Contains(url, want) {
			t.Errorf("url %s missing %s", url, want)
		}
	}
}

func TestService_ProductAccessFailureMeansNoAccess(t *testing.T) {
	platform := newFakePlatform().add("sgr_projects",
		map[string]any{"sgr_projectid": "P1", "_sgr_customer_value": "C1", "sgr_stage": "1"},
	)
	platform.fail["sgr_projects"] = http.StatusInternalServerError
	env := newTestEnv(t, platform, nil)

	resp := get(t, env, "productaccess")
	if resp.Body.(AccessResult).HasAccess {
		t.Error("failed access check should report no access")
	}
}
