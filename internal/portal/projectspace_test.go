package portal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestParseProjectSpaceSelection(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    ProjectSpaceSelection
		wantErr string
	}{
		{
			name: "selection with product set",
			body: `{"projectSpaceId":"S1","customerSelection":2,"productSetId":"SET1"}`,
			want: ProjectSpaceSelection{ProjectSpaceID: "S1", CustomerSelection: 2, ProductSetID: "SET1"},
		},
		{
			name: "selection as string",
			body: `{"projectSpaceId":"S1","customerSelection":" 2 ","productSetId":"SET1"}`,
			want: ProjectSpaceSelection{ProjectSpaceID: "S1", CustomerSelection: 2, ProductSetID: "SET1"},
		},
		{
			name: "other selection drops product set",
			body: `{"projectSpaceId":"S1","customerSelection":1,"productSetId":"SET1"}`,
			want: ProjectSpaceSelection{ProjectSpaceID: "S1", CustomerSelection: 1},
		},
		{
			name: "blank product set",
			body: `{"projectSpaceId":"S1","customerSelection":2,"productSetId":"  "}`,
			want: ProjectSpaceSelection{ProjectSpaceID: "S1", CustomerSelection: 2},
		},
		{
			name: "null product set",
			body: `{"projectSpaceId":"S1","customerSelection":2,"productSetId":null}`,
			want: ProjectSpaceSelection{ProjectSpaceID: "S1", CustomerSelection: 2},
		},
		{name: "empty body", body: "", wantErr: "Request body must be a JSON object."},
		{name: "array body", body: `[1]`, wantErr: "Request body must be a JSON object."},
		{name: "null body", body: `null`, wantErr: "Request body must be a JSON object."},
		{name: "missing space", body: `{"customerSelection":1}`, wantErr: "projectSpaceId is required."},
		{name: "blank space", body: `{"projectSpaceId":" ","customerSelection":1}`, wantErr: "projectSpaceId is required."},
		{name: "numeric space", body: `{"projectSpaceId":5,"customerSelection":1}`, wantErr: "projectSpaceId is required."},
		{name: "missing selection", body: `{"projectSpaceId":"S1"}`, wantErr: "customerSelection is required."},
		{name: "fractional selection", body: `{"projectSpaceId":"S1","customerSelection":1.5}`, wantErr: "customerSelection is required."},
		{name: "out of range selection", body: `{"projectSpaceId":"S1","customerSelection":3000000000}`, wantErr: "customerSelection is required."},
		{name: "word selection", body: `{"projectSpaceId":"S1","customerSelection":"two"}`, wantErr: "customerSelection is required."},
		{name: "numeric product set", body: `{"projectSpaceId":"S1","customerSelection":2,"productSetId":7}`, wantErr: "productSetId must be a string."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProjectSpaceSelection(strings.NewReader(tt.body))
			if tt.wantErr != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) || verr.Message != tt.wantErr {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				if !errors.Is(err, ErrInvalidRequest) {
					t.Error("validation errors should match ErrInvalidRequest")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProjectSpaceSelection() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	t.Run("nil body", func(t *testing.T) {
		_, err := ParseProjectSpaceSelection(nil)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Message != "Request body is required." {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		body := `{"projectSpaceId":"` + strings.Repeat("x", MaxSelectionBodyBytes) + `"}`
		_, err := ParseProjectSpaceSelection(strings.NewReader(body))
		var verr *ValidationError
		if !errors.As(err, &verr) || !strings.HasPrefix(verr.Message, "Request body exceeds") {
			t.Errorf("error = %v", err)
		}
	})
}

func spacesPlatform() *fakePlatform {
	return newFakePlatform().
		add("sgr_projects",
			map[string]any{"sgr_projectid": "P1", "_sgr_customer_value": "C1"},
			map[string]any{"sgr_projectid": "P3", "_sgr_customer_value": "C2"},
		).
		add("sgr_projectspaces",
			map[string]any{"sgr_projectspaceid": "S1", "_sgr_project_value": "P1"},
			map[string]any{"sgr_projectspaceid": "S3", "_sgr_project_value": "P3"},
			map[string]any{"sgr_projectspaceid": "S4", "_sgr_project_value": nil},
		)
}

func postSelection(env *testEnv, body string) (*Response, error) {
	return env.service.Handle(context.Background(), Request{
		ContactID:    "C1",
		ServiceToken: "svc-token",
		Entity:       "ProjectSpaceSelection",
		Method:       http.MethodPost,
		Body:         strings.NewReader(body),
	})
}

func TestService_UpdateProjectSpaceSelection(t *testing.T) {
	t.Run("links the product set", func(t *testing.T) {
		env := newTestEnv(t, spacesPlatform(), nil)

		resp, err := postSelection(env, `{"projectSpaceId":"S1","customerSelection":2,"productSetId":"SET1"}`)
		if err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if result, ok := resp.Body.(UpdateResult); !ok || !result.Success {
			t.Errorf("body = %+v", resp.Body)
		}
		if resp.Kind != EntityProjectSpaceSelection {
			t.Errorf("kind = %v", resp.Kind)
		}

		if len(env.platform.patches) != 1 {
			t.Fatalf("patches = %d", len(env.platform.patches))
		}
		patch := env.platform.patches[0]
		if patch.Table != "sgr_projectspaces" || patch.ID != "S1" {
			t.Errorf("patched %s(%s)", patch.Table, patch.ID)
		}
		if patch.Body["sgr_customerselection"] != float64(2) {
			t.Errorf("selection = %v", patch.Body["sgr_customerselection"])
		}
		if patch.Body["sgr_productset@odata.bind"] != "/sgr_productsets(SET1)" {
			t.Errorf("bind = %v", patch.Body["sgr_productset@odata.bind"])
		}

		ownership := filterOf(t, env.reads("sgr_projects")[0])
		if ownership != "sgr_projectid eq 'P1' and _sgr_customer_value eq 'C1'" {
			t.Errorf("ownership filter = %q", ownership)
		}
	})

	t.Run("other selection clears the link", func(t *testing.T) {
		env := newTestEnv(t, spacesPlatform(), nil)

		if _, err := postSelection(env, `{"projectSpaceId":"S1","customerSelection":"1","productSetId":"SET1"}`); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		patch := env.platform.patches[0]
		bind, present := patch.Body["sgr_productset@odata.bind"]
		if !present || bind != nil {
			t.Errorf("bind = %v (present %v), want explicit null", bind, present)
		}
		if patch.Body["sgr_customerselection"] != float64(1) {
			t.Errorf("selection = %v", patch.Body["sgr_customerselection"])
		}
	})

	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"space of another customer", `{"projectSpaceId":"S3","customerSelection":2,"productSetId":"SET1"}`, ErrNotAuthorized},
		{"unknown space", `{"projectSpaceId":"S9","customerSelection":1}`, ErrProjectSpaceNotFound},
		{"space without project", `{"projectSpaceId":"S4","customerSelection":1}`, ErrProjectSpaceUnlinked},
		{"invalid body", `{"customerSelection":1}`, ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, spacesPlatform(), nil)

			_, err := postSelection(env, tt.body)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if len(env.platform.patches) != 0 {
				t.Error("no update may be written")
			}
			if calls := env.transport.CallsMatching(http.MethodPatch, ""); len(calls) != 0 {
				t.Errorf("PATCH calls = %d", len(calls))
			}
		})
	}

	t.Run("update rejected", func(t *testing.T) {
		platform := spacesPlatform()
		platform.fail["sgr_projectspaces#patch"] = http.StatusForbidden
		env := newTestEnv(t, platform, nil)

		_, err := postSelection(env, `{"projectSpaceId":"S1","customerSelection":2,"productSetId":"SET1"}`)
		if err == nil || !strings.Contains(err.Error(), "failed to update project space selection") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		platform := spacesPlatform()
		platform.fail["sgr_projectspaces"] = http.StatusInternalServerError
		env := newTestEnv(t, platform, nil)

		_, err := postSelection(env, `{"projectSpaceId":"S1","customerSelection":1}`)
		var qerr *QueryError
		if !errors.As(err, &qerr) || qerr.Table != "sgr_projectspaces" {
			t.Errorf("error = %v", err)
		}
	})
}

func TestService_SelectionEntityMethods(t *testing.T) {
	env := newTestEnv(t, spacesPlatform(), nil)

	_, err := env.service.Handle(context.Background(), Request{ContactID: "C1", Entity: "projectspaceselection", Method: http.MethodGet})
	var unsupported *UnsupportedEntityError
	if !errors.As(err, &unsupported) {
		t.Errorf("GET error = %v, want unsupported entity", err)
	}

	_, err = env.service.Handle(context.Background(), Request{ContactID: "C1", Entity: "projectspaceselection", Method: http.MethodPut})
	var notAllowed *MethodNotAllowedError
	if !errors.As(err, &notAllowed) || notAllowed.Method != "PUT" {
		t.Errorf("PUT error = %v, want method not allowed", err)
	}

	_, err = env.service.Handle(context.Background(), Request{ContactID: "C1", Entity: "projects", Method: http.MethodPost})
	if !errors.As(err, &notAllowed) {
		t.Errorf("POST projects error = %v, want method not allowed", err)
	}
}
