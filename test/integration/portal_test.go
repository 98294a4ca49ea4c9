package integration

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/prithuhomes/customerportal/internal/config"
	"github.com/prithuhomes/customerportal/internal/portalclient"
	"github.com/prithuhomes/customerportal/internal/server"
)

const audience = "portal-client-id"

// identityProvider serves discovery, JWKS and the client credentials
// token endpoint
type identityProvider struct {
	server *httptest.Server
	key    *rsa.PrivateKey
}

func newIdentityProvider(t *testing.T) *identityProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	idp := &identityProvider{key: key}

	mux := http.NewServeMux()
	mux.HandleFunc("/tenant/v2.0/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   idp.issuer(),
			"jwks_uri": idp.server.URL + "/tenant/discovery/v2.0/keys",
		})
	})
	mux.HandleFunc("/tenant/discovery/v2.0/keys", func(w http.ResponseWriter, r *http.Request) {
		pub, err := jwk.FromRaw(key.PublicKey)
		if err != nil {
			t.Errorf("Failed to create JWK: %v", err)
		}
		_ = pub.Set(jwk.KeyIDKey, "k1")
		_ = pub.Set(jwk.AlgorithmKey, jwa.RS256)
		set := jwk.NewSet()
		_ = set.AddKey(pub)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	})
	mux.HandleFunc("/tenant/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "svc-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})

	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (idp *identityProvider) issuer() string {
	return idp.server.URL + "/tenant/v2.0/"
}

func (idp *identityProvider) token(t *testing.T, claims map[string]any) string {
	t.Helper()
	tok := jwt.New()
	_ = tok.Set(jwt.IssuerKey, idp.issuer())
	_ = tok.Set(jwt.AudienceKey, audience)
	_ = tok.Set(jwt.IssuedAtKey, time.Now())
	_ = tok.Set(jwt.ExpirationKey, time.Now().Add(time.Hour))
	for k, v := range claims {
		_ = tok.Set(k, v)
	}
	signingKey, err := jwk.FromRaw(idp.key)
	if err != nil {
		t.Fatalf("Failed to create signing key: %v", err)
	}
	_ = signingKey.Set(jwk.KeyIDKey, "k1")
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, signingKey))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return string(signed)
}

// dataPlatform is an in-memory OData table store. It understands the
// filters the portal sends: eq comparisons joined by "and" or "or".
type dataPlatform struct {
	server *httptest.Server

	mu      sync.Mutex
	tables  map[string][]map[string]any
	ids     map[string]string
	patches []string
}

func newDataPlatform(t *testing.T) *dataPlatform {
	t.Helper()
	dp := &dataPlatform{
		tables: map[string][]map[string]any{
			"contacts": {
				{"contactid": "C1", "emailaddress1": "ann@example.com"},
				{"contactid": "C2", "emailaddress1": "bob@example.com", "prithu_b2cobjectid": "oid-bob"},
			},
			"sgr_projects": {
				{"sgr_projectid": "P1", "_sgr_customer_value": "C1", "sgr_name": "Villa", "sgr_stage": 1},
				{"sgr_projectid": "P2", "_sgr_customer_value": "C2", "sgr_name": "Loft", "sgr_stage": 0},
			},
			"sgr_projectspaces": {
				{"sgr_projectspaceid": "S1", "_sgr_project_value": "P1", "sgr_customerselection": nil},
				{"sgr_projectspaceid": "S2", "_sgr_project_value": "P2", "sgr_customerselection": nil},
			},
		},
		ids: map[string]string{
			"contacts":          "contactid",
			"sgr_projects":      "sgr_projectid",
			"sgr_projectspaces": "sgr_projectspaceid",
		},
	}
	dp.server = httptest.NewServer(http.HandlerFunc(dp.serve))
	t.Cleanup(dp.server.Close)
	return dp
}

func (dp *dataPlatform) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer svc-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	resource := strings.TrimPrefix(r.URL.Path, "/api/data/v9.2/")
	dp.mu.Lock()
	defer dp.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		rows, ok := dp.tables[resource]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var out []map[string]any
		for _, row := range rows {
			if matches(row, r.URL.Query().Get("$filter")) {
				out = append(out, row)
			}
		}
		if out == nil {
			out = []map[string]any{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"value": out})

	case http.MethodPatch:
		open := strings.IndexByte(resource, '(')
		if open < 0 || !strings.HasSuffix(resource, ")") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		table, id := resource[:open], strings.TrimSuffix(resource[open+1:], ")")
		body, _ := io.ReadAll(r.Body)
		var patch map[string]any
		if err := json.Unmarshal(body, &patch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, row := range dp.tables[table] {
			if row[dp.ids[table]] == id {
				for k, v := range patch {
					row[k] = v
				}
				dp.patches = append(dp.patches, fmt.Sprintf("%s(%s) %s", table, id, body))
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (dp *dataPlatform) Patches() []string {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	return append([]string(nil), dp.patches...)
}

func matches(row map[string]any, filter string) bool {
	if filter == "" {
		return true
	}
	for _, conjunct := range strings.Split(filter, " and ") {
		conjunct = strings.Trim(conjunct, "()")
		matched := false
		for _, term := range strings.Split(conjunct, " or ") {
			field, value, ok := strings.Cut(term, " eq ")
			if !ok {
				return false
			}
			value = strings.ReplaceAll(strings.Trim(value, "'"), "''", "'")
			if fmt.Sprint(row[field]) == value {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

type portal struct {
	idp    *identityProvider
	data   *dataPlatform
	client *portalclient.Client
}

func startPortal(t *testing.T) *portal {
	t.Helper()
	idp := newIdentityProvider(t)
	data := newDataPlatform(t)

	cfg := config.Default()
	cfg.External.Issuer = idp.issuer()
	cfg.External.ClientID = audience
	cfg.External.MetadataURL = idp.server.URL + "/tenant/v2.0/.well-known/openid-configuration"
	cfg.Internal.ClientID = "svc-client"
	cfg.Internal.ClientSecret = "svc-secret"
	cfg.Internal.TenantID = "tenant"
	cfg.Internal.Authority = idp.server.URL
	cfg.Dataverse.URL = data.server.URL
	cfg.Dataverse.Projects.Select = "sgr_name"
	cfg.Observability.Type = "noop"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Invalid config: %v", err)
	}

	provider := config.NewProvider(&cfg)
	provider.LogOutput = io.Discard
	serverCfg, err := provider.ServerConfig()
	if err != nil {
		t.Fatalf("Failed to build server: %v", err)
	}
	serverCfg.Addr = "127.0.0.1:0"

	srv, err := server.New(serverCfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		_ = srv.Stop(context.Background())
	})

	return &portal{
		idp:    idp,
		data:   data,
		client: &portalclient.Client{BaseURL: "http://" + srv.Addr() + "/api"},
	}
}

func TestPortal_FirstSignInLinksContact(t *testing.T) {
	p := startPortal(t)
	token := p.idp.token(t, map[string]any{
		"oid":   "oid-ann",
		"email": "ann@example.com",
		"roles": []string{"customer_portal_access"},
	})

	body, err := p.client.Fetch(context.Background(), token, "projects")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	var projects []map[string]any
	if err := json.Unmarshal(body, &projects); err != nil {
		t.Fatalf("Invalid body %s: %v", body, err)
	}
	if len(projects) != 1 || projects[0]["sgr_projectid"] != "P1" {
		t.Errorf("projects = %v", projects)
	}

	patches := p.data.Patches()
	if len(patches) != 1 || !strings.HasPrefix(patches[0], "contacts(C1) ") || !strings.Contains(patches[0], `"oid-ann"`) {
		t.Fatalf("patches = %v, want the contact linked", patches)
	}

	// The second request finds the contact by object id and links nothing
	if _, err := p.client.Fetch(context.Background(), token, "projects"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n := len(p.data.Patches()); n != 1 {
		t.Errorf("patches after second request = %d, want 1", n)
	}
}

func TestPortal_LoadEverything(t *testing.T) {
	p := startPortal(t)
	token := p.idp.token(t, map[string]any{
		"oid":   "oid-bob",
		"roles": []string{"customer_portal_access"},
	})

	results, err := p.client.FetchAll(context.Background(), token, "projects", "projectspaces", "productaccess")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}

	var spaces []map[string]any
	if err := json.Unmarshal(results["projectspaces"], &spaces); err != nil {
		t.Fatalf("Invalid projectspaces %s: %v", results["projectspaces"], err)
	}
	if len(spaces) != 1 || spaces[0]["sgr_projectspaceid"] != "S2" {
		t.Errorf("projectspaces = %v", spaces)
	}

	var access map[string]any
	if err := json.Unmarshal(results["productaccess"], &access); err != nil {
		t.Fatalf("Invalid productaccess %s: %v", results["productaccess"], err)
	}
	// Bob's only project is at stage 0
	if access["hasAccess"] != false {
		t.Errorf("productaccess = %v", access)
	}
}

func TestPortal_ProjectSpaceSelection(t *testing.T) {
	p := startPortal(t)
	token := p.idp.token(t, map[string]any{
		"oid":   "oid-bob",
		"roles": []string{"customer_portal_access"},
	})
	ctx := context.Background()

	err := p.client.SubmitProjectSpaceSelection(ctx, token, "", portalclient.Selection{
		ProjectSpaceID:    "S2",
		CustomerSelection: 2,
		ProductSetID:      "SET1",
	})
	if err != nil {
		t.Fatalf("SubmitProjectSpaceSelection() error = %v", err)
	}
	patches := p.data.Patches()
	if len(patches) != 1 || !strings.Contains(patches[0], `"sgr_productset@odata.bind":"/sgr_productsets(SET1)"`) {
		t.Errorf("patches = %v", patches)
	}

	// S1 belongs to Ann's project
	err = p.client.SubmitProjectSpaceSelection(ctx, token, "", portalclient.Selection{
		ProjectSpaceID:    "S1",
		CustomerSelection: 1,
	})
	var apiErr *portalclient.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
		t.Fatalf("error = %v, want 403", err)
	}
	if n := len(p.data.Patches()); n != 1 {
		t.Errorf("rejected update should not write, patches = %d", n)
	}
}

func TestPortal_Rejections(t *testing.T) {
	p := startPortal(t)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "forged token",
			token:      "not-a-jwt",
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Token validation failed.",
		},
		{
			name:       "missing role",
			token:      p.idp.token(t, map[string]any{"oid": "oid-bob"}),
			wantStatus: http.StatusForbidden,
			wantMsg:    "User is authenticated but does not have required role 'customer_portal_access'.",
		},
		{
			name: "unknown customer",
			token: p.idp.token(t, map[string]any{
				"oid":   "oid-eve",
				"email": "eve@example.com",
				"roles": []string{"customer_portal_access"},
			}),
			wantStatus: http.StatusForbidden,
			wantMsg:    "User is authenticated but not authorized for customer data.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.client.Fetch(context.Background(), tt.token, "projects")
			var apiErr *portalclient.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.wantStatus || apiErr.Message != tt.wantMsg {
				t.Errorf("APIError = %+v", apiErr)
			}
		})
	}

	t.Run("unsupported entity", func(t *testing.T) {
		token := p.idp.token(t, map[string]any{"oid": "oid-bob", "roles": []string{"customer_portal_access"}})
		_, err := p.client.Fetch(context.Background(), token, "invoices")
		var apiErr *portalclient.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
			t.Errorf("error = %v, want 400", err)
		}
	})

	t.Run("health", func(t *testing.T) {
		base, _ := url.Parse(p.client.BaseURL)
		resp, err := http.Get("http://" + base.Host + "/healthz")
		if err != nil {
			t.Fatalf("GET /healthz error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}
