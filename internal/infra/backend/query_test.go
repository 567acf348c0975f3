package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type staticTokens string

func (t staticTokens) AccessToken() string { return string(t) }

type capturedRequest struct {
	method string
	path   string
	query  string
	prefer []string
	auth   string
	apiKey string
	body   []byte
}

// newTestClient points a client at a stub server that records each request
// and replies with the given status and body.
func newTestClient(t *testing.T, status int, respBody string) (*Client, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.prefer = r.Header.Values("Prefer")
		captured.auth = r.Header.Get("Authorization")
		captured.apiKey = r.Header.Get("apikey")
		body, _ := io.ReadAll(r.Body)
		captured.body = body
		w.WriteHeader(status)
		w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{URL: srv.URL, APIKey: "test-key", Timeout: time.Second}, staticTokens("test-token"))
	return c, captured
}

func TestGetBuildsPostgRESTQuery(t *testing.T) {
	c, captured := newTestClient(t, http.StatusOK, `[{"id":"c1","title":"Estate of Smith"}]`)

	var rows []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	err := c.From("cases").
		Select("*").
		Eq("status", "open").
		Gt("updated_at", "2026-01-02T00:00:00Z").
		Order("updated_at", true).
		Limit(50).
		Get(context.Background(), &rows)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if captured.method != http.MethodGet {
		t.Errorf("method = %s, want GET", captured.method)
	}
	if captured.path != "/rest/v1/cases" {
		t.Errorf("path = %s, want /rest/v1/cases", captured.path)
	}
	for _, want := range []string{
		"select=%2A",
		"status=eq.open",
		"updated_at=gt.2026-01-02T00%3A00%3A00Z",
		"order=updated_at.asc",
		"limit=50",
	} {
		if !strings.Contains(captured.query, want) {
			t.Errorf("query %q missing %q", captured.query, want)
		}
	}
	if captured.auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", captured.auth)
	}
	if captured.apiKey != "test-key" {
		t.Errorf("apikey = %q", captured.apiKey)
	}
	if len(rows) != 1 || rows[0].ID != "c1" {
		t.Errorf("rows = %+v", rows)
	}
}

// Two filters on the same column form a range and must both reach the wire
// as repeated params.
func TestFiltersOnSameColumnAccumulate(t *testing.T) {
	c, captured := newTestClient(t, http.StatusOK, `[]`)

	err := c.From("documents").
		Gte("updated_at", "2026-01-01").
		Lt("updated_at", "2026-02-01").
		Get(context.Background(), nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	for _, want := range []string{
		"updated_at=gte.2026-01-01",
		"updated_at=lt.2026-02-01",
	} {
		if !strings.Contains(captured.query, want) {
			t.Errorf("query %q missing %q", captured.query, want)
		}
	}
}

func TestUpsertSetsMergeDuplicates(t *testing.T) {
	c, captured := newTestClient(t, http.StatusCreated, "")

	rows := []map[string]string{{"id": "c1", "title": "Estate of Smith"}}
	if err := c.From("cases").Upsert(context.Background(), rows, nil); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if captured.method != http.MethodPost {
		t.Errorf("method = %s, want POST", captured.method)
	}
	found := false
	for _, p := range captured.prefer {
		if strings.Contains(p, "resolution=merge-duplicates") {
			found = true
		}
	}
	if !found {
		t.Errorf("Prefer headers %v missing merge-duplicates", captured.prefer)
	}

	var sent []map[string]string
	if err := json.Unmarshal(captured.body, &sent); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if len(sent) != 1 || sent[0]["id"] != "c1" {
		t.Errorf("body = %+v", sent)
	}
}

func TestInsertRequestsRepresentationWhenDecoding(t *testing.T) {
	c, captured := newTestClient(t, http.StatusCreated, `[{"id":"n1"}]`)

	var created []struct {
		ID string `json:"id"`
	}
	err := c.From("notes").Insert(context.Background(), map[string]string{"body": "hearing moved"}, &created)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	found := false
	for _, p := range captured.prefer {
		if p == "return=representation" {
			found = true
		}
	}
	if !found {
		t.Errorf("Prefer headers %v missing return=representation", captured.prefer)
	}
	if len(created) != 1 || created[0].ID != "n1" {
		t.Errorf("created = %+v", created)
	}
}

func TestUpdateUsesPatch(t *testing.T) {
	c, captured := newTestClient(t, http.StatusNoContent, "")

	err := c.From("documents").
		Eq("id", "d1").
		Update(context.Background(), map[string]string{"summary_status": "completed"}, nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if captured.method != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", captured.method)
	}
	if !strings.Contains(captured.query, "id=eq.d1") {
		t.Errorf("query = %q, want id=eq.d1", captured.query)
	}
}

func TestDeleteUsesDelete(t *testing.T) {
	c, captured := newTestClient(t, http.StatusNoContent, "")

	if err := c.From("notes").Eq("case_id", "c9").Delete(context.Background()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if captured.method != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", captured.method)
	}
}

func TestRPCPostsToFunctionPath(t *testing.T) {
	c, captured := newTestClient(t, http.StatusOK, `{"summary":"two-page brief"}`)

	var out struct {
		Summary string `json:"summary"`
	}
	err := c.RPC(context.Background(), "summarize_document", map[string]string{"document_id": "d1"}, &out)
	if err != nil {
		t.Fatalf("RPC() error = %v", err)
	}

	if captured.path != "/rest/v1/rpc/summarize_document" {
		t.Errorf("path = %s", captured.path)
	}
	if out.Summary != "two-page brief" {
		t.Errorf("Summary = %q", out.Summary)
	}
}

func TestErrorResponseCarriesStatus(t *testing.T) {
	c, _ := newTestClient(t, http.StatusUnauthorized, `{"code":"PGRST301","message":"JWT expired"}`)

	err := c.From("cases").Get(context.Background(), nil)
	if err == nil {
		t.Fatal("Get() = nil, want error")
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not *Error", err)
	}
	if apiErr.StatusCode() != http.StatusUnauthorized {
		t.Errorf("StatusCode() = %d, want 401", apiErr.StatusCode())
	}
	if apiErr.Code != "PGRST301" || apiErr.Message != "JWT expired" {
		t.Errorf("error = %+v", apiErr)
	}
}

func TestErrorResponseFallsBackToRawBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusBadGateway, "upstream unavailable")

	err := c.From("cases").Get(context.Background(), nil)
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %T is not *Error", err)
	}
	if apiErr.Message != "upstream unavailable" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestRequestOperation(t *testing.T) {
	tests := []struct {
		r      request
		expect string
	}{
		{request{method: http.MethodGet, path: "/rest/v1/cases"}, "select"},
		{request{method: http.MethodPost, path: "/rest/v1/cases"}, "insert"},
		{request{method: http.MethodPost, path: "/rest/v1/cases", prefer: []string{"resolution=merge-duplicates"}}, "upsert"},
		{request{method: http.MethodPost, path: "/rest/v1/rpc/summarize_document"}, "rpc"},
		{request{method: http.MethodPatch, path: "/rest/v1/cases"}, "update"},
		{request{method: http.MethodDelete, path: "/rest/v1/cases"}, "delete"},
	}
	for _, tt := range tests {
		if got := tt.r.operation(); got != tt.expect {
			t.Errorf("operation(%s %s) = %q, want %q", tt.r.method, tt.r.path, got, tt.expect)
		}
	}
}

func TestObserverSeesEveryTerminalCall(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `[]`)

	var ops []string
	c.SetObserver(func(op string, d time.Duration, err error) {
		ops = append(ops, op)
	})

	_ = c.From("cases").Get(context.Background(), nil)
	_ = c.RPC(context.Background(), "noop", nil, nil)

	if len(ops) != 2 || ops[0] != "select" || ops[1] != "rpc" {
		t.Errorf("observed ops = %v, want [select rpc]", ops)
	}
}
