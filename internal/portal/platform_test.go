package portal

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/prithuhomes/customerportal/internal/cel"
	"github.com/prithuhomes/customerportal/internal/httpfixture"
	"github.com/prithuhomes/customerportal/internal/odata"
)

const platformURL = "https://org.crm.dynamics.com"

// fakePlatform is an in-memory data platform served through httpfixture.
// It understands flat $filter expressions of "field eq 'value'" clauses
// joined by "or" or by "and", plus $top and PATCH on table(id).
type fakePlatform struct {
	mu      sync.Mutex
	tables  map[string][]map[string]any
	fail    map[string]int // table -> status to fail reads with
	noValue map[string]bool
	patches []patchCall
}

type patchCall struct {
	Table string
	ID    string
	Body  map[string]any
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		tables:  map[string][]map[string]any{},
		fail:    map[string]int{},
		noValue: map[string]bool{},
	}
}

func (f *fakePlatform) add(table string, rows ...map[string]any) *fakePlatform {
	f.tables[table] = append(f.tables[table], rows...)
	return f
}

func (f *fakePlatform) fixture(req *http.Request) *httpfixture.Fixture {
	f.mu.Lock()
	defer f.mu.Unlock()

	segment := req.URL.Path[strings.LastIndex(req.URL.Path, "/")+1:]
	switch req.Method {
	case http.MethodGet:
		if status, ok := f.fail[segment]; ok {
			return httpfixture.JSON(status, map[string]any{"error": map[string]string{"message": "boom"}})
		}
		if f.noValue[segment] {
			return httpfixture.JSON(200, map[string]any{"@odata.context": "x"})
		}
		query := req.URL.Query()
		matches := []map[string]any{}
		for _, row := range f.tables[segment] {
			if matchFilter(row, query.Get("$filter")) {
				matches = append(matches, row)
			}
		}
		if top, err := strconv.Atoi(query.Get("$top")); err == nil && top < len(matches) {
			matches = matches[:top]
		}
		return httpfixture.JSON(200, map[string]any{"value": matches})

	case http.MethodPatch:
		table, rest, _ := strings.Cut(segment, "(")
		id := strings.TrimSuffix(rest, ")")
		if status, ok := f.fail[table+"#patch"]; ok {
			return httpfixture.JSON(status, map[string]any{"error": map[string]string{"message": "patch rejected"}})
		}
		var body map[string]any
		data, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			return httpfixture.JSON(400, map[string]string{"error": "bad body"})
		}
		f.patches = append(f.patches, patchCall{Table: table, ID: id, Body: body})
		return &httpfixture.Fixture{StatusCode: 204}
	}
	return nil
}

func matchFilter(row map[string]any, filter string) bool {
	if filter == "" {
		return true
	}
	if strings.Contains(filter, " and ") {
		for _, clause := range strings.Split(filter, " and ") {
			if !matchClause(row, clause) {
				return false
			}
		}
		return true
	}
	for _, clause := range strings.Split(filter, " or ") {
		if matchClause(row, clause) {
			return true
		}
	}
	return false
}

func matchClause(row map[string]any, clause string) bool {
	field, value, ok := strings.Cut(clause, " eq ")
	if !ok {
		return false
	}
	value = strings.ReplaceAll(strings.TrimSuffix(strings.TrimPrefix(value, "'"), "'"), "''", "'")
	got, ok := cel.ScalarText(row[field])
	return ok && got == value
}

// testTables configures every table the tests use
func testTables() Tables {
	t := DefaultTables()
	t.Secondary.Table = "sgr_related"
	t.Secondary.CustomerLookupField = "_sgr_contact_value"
	t.Secondary.ProjectLookupField = "_sgr_project_value"
	t.Third = ThirdTable{
		Table:              "sgr_customeragreements",
		ProjectLookupField: "_sgr_project_value",
		IDField:            "sgr_customeragreementid",
	}
	t.Fourth.Table = "sgr_paymentmilestones"
	t.Fourth.ThirdLookupField = "_sgr_customeragreement_value"
	t.Fifth.Table = "sgr_paymenttransactions"
	t.Fifth.FourthLookupField = "_sgr_paymentmilestone_value"
	t.ProductSetItems = ProductSetItems{
		Table:             "sgr_productsetitems",
		SetLookupField:    "_sgr_productset_value",
		MasterLookupField: "_sgr_productmaster_value",
	}
	t.ProductMasters.Table = "sgr_productmasters"
	return t
}

type testEnv struct {
	platform  *fakePlatform
	transport *httpfixture.Transport
	service   *Service
}

func newTestEnv(t *testing.T, platform *fakePlatform, mutate func(*Config)) *testEnv {
	t.Helper()
	transport := httpfixture.NewTransport(httpfixture.NewFuncProvider(platform.fixture))
	client, err := odata.NewClient(odata.ClientConfig{
		URL:        platformURL,
		HTTPClient: transport.Client(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	cfg := Config{
		Client: client,
		Tables: testTables(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	service, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return &testEnv{platform: platform, transport: transport, service: service}
}

// reads returns the GET calls made against table
func (e *testEnv) reads(table string) []httpfixture.Call {
	return e.transport.CallsMatching(http.MethodGet, "/"+table+"?")
}

func rowsOf(t *testing.T, body any) []map[string]any {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("body is not a row array: %s", data)
	}
	return rows
}

func filterOf(t *testing.T, call httpfixture.Call) string {
	t.Helper()
	req, err := http.NewRequest(call.Method, call.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	return req.URL.Query().Get("$filter")
}
