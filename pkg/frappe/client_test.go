package frappe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL + "/", APIKey: "key", APISecret: "secret"}, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://erp.local", "::"} {
		if _, err := New(Config{BaseURL: raw}); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestGetSendsTokenAndEscapesDoctype(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token key:secret" {
			t.Errorf("unexpected authorization %q", got)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.EscapedPath() != "/api/resource/Lift%20Irrigation%20Scheme/LIS%2F01" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		_, _ = io.WriteString(w, `{"data":{"name":"LIS/01","modified":"2024-01-01 00:00:00"}}`)
	})

	got, err := client.Get(context.Background(), "Lift Irrigation Scheme", "LIS/01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := map[string]any{"name": "LIS/01", "modified": "2024-01-01 00:00:00"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertAndUpdateSendJSON(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			_, _ = io.WriteString(w, `{"message":"ok"}`)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing JSON content type")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		body["name"] = "AST-0001"
		_ = json.NewEncoder(w).Encode(map[string]any{"data": body})
	})

	created, err := client.Insert(context.Background(), "Asset", map[string]any{"asset_name": "Pump"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if created["name"] != "AST-0001" {
		t.Fatalf("unexpected insert result %v", created)
	}
	if _, err := client.Update(context.Background(), "Asset", "AST-0001", map[string]any{"asset_name": "Pump 2"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := client.Delete(context.Background(), "Asset", "AST-0001"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []string{"POST /api/resource/Asset", "PUT /api/resource/Asset/AST-0001", "DELETE /api/resource/Asset/AST-0001"}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchLinkCombinesFilters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var filters [][]any
		if err := json.Unmarshal([]byte(query.Get("filters")), &filters); err != nil {
			t.Errorf("decode filters: %v", err)
		}
		want := [][]any{
			{"Stage No", "lis_name", "=", "LIS-01"},
			{"Stage No", "name", "like", "%st%"},
		}
		if diff := cmp.Diff(want, filters); diff != "" {
			t.Errorf("filters mismatch (-want +got):\n%s", diff)
		}
		if query.Get("fields") != `["name"]` || query.Get("limit_page_length") != "5" {
			t.Errorf("unexpected query %v", query)
		}
		_, _ = io.WriteString(w, `{"data":[{"name":"Stage 1"},{"name":""},{"name":"Stage 2"}]}`)
	})

	got, err := client.SearchLink(context.Background(), "Stage No", " st ", [][]any{{"Stage No", "lis_name", "=", "LIS-01"}}, 5)
	if err != nil {
		t.Fatalf("SearchLink: %v", err)
	}
	want := []LinkOption{{Value: "Stage 1", Label: "Stage 1"}, {Value: "Stage 2", Label: "Stage 2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchLinkSharesConcurrentLookups(t *testing.T) {
	var hits atomic.Int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		arrived <- struct{}{}
		<-release
		_, _ = io.WriteString(w, `{"data":[{"name":"Haveli"}]}`)
	})

	search := func() ([]LinkOption, error) {
		return client.SearchLink(context.Background(), "Taluka", "hav", nil, 10)
	}
	var g errgroup.Group
	results := make([][]LinkOption, 4)
	g.Go(func() error {
		var err error
		results[0], err = search()
		return err
	})
	<-arrived
	for i := 1; i < len(results); i++ {
		g.Go(func() error {
			var err error
			results[i], err = search()
			return err
		})
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	if err := g.Wait(); err != nil {
		t.Fatalf("SearchLink: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one shared request, got %d", got)
	}
	for i, got := range results {
		if diff := cmp.Diff([]LinkOption{{Value: "Haveli", Label: "Haveli"}}, got); diff != "" {
			t.Fatalf("result %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestSearchLinkSurvivesSharerCancel(t *testing.T) {
	var hits atomic.Int32
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		arrived <- struct{}{}
		<-release
		_, _ = io.WriteString(w, `{"data":[{"name":"Mulshi"}]}`)
	})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.SearchLink(first, "Taluka", "mul", nil, 10)
		firstErr <- err
	}()
	<-arrived

	var g errgroup.Group
	var second []LinkOption
	g.Go(func() error {
		var err error
		second, err = client.SearchLink(context.Background(), "Taluka", "mul", nil, 10)
		return err
	})
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
	}
	close(release)

	if err := g.Wait(); err != nil {
		t.Fatalf("live caller failed after a sharer cancelled: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one shared request, got %d", got)
	}
	if diff := cmp.Diff([]LinkOption{{Value: "Mulshi", Label: "Mulshi"}}, second); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorBodyIsDecoded(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{
			"exception": "frappe.exceptions.DuplicateEntryError: ('Asset', 'AST-0001', IntegrityError(1062))",
			"exc_type": "DuplicateEntryError",
			"_server_messages": "[\"{\\\"message\\\": \\\"Asset <strong>AST-0001</strong> already exists &amp; cannot be duplicated\\\"}\"]"
		}`)
	})

	_, err := client.Insert(context.Background(), "Asset", map[string]any{"name": "AST-0001"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.ExcType != "DuplicateEntryError" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if got := apiErr.Detail(); got != "Asset AST-0001 already exists & cannot be duplicated" {
		t.Fatalf("unexpected detail %q", got)
	}
}

func TestExcTypeFromException(t *testing.T) {
	apiErr := decodeAPIError("PUT", "/x", 417, []byte(`{"exception":"frappe.exceptions.MandatoryError: [Asset, AST-1]: asset_name"}`))
	if apiErr.ExcType != "MandatoryError" {
		t.Fatalf("unexpected exc type %q", apiErr.ExcType)
	}
	if apiErr.Detail() != "[Asset, AST-1]: asset_name" {
		t.Fatalf("unexpected detail %q", apiErr.Detail())
	}

	plain := decodeAPIError("GET", "/x", 502, []byte("<html><body>Bad Gateway</body></html>"))
	if plain.Detail() != "Bad Gateway" {
		t.Fatalf("unexpected detail %q", plain.Detail())
	}
}

func TestParseServerMessagesPlainStrings(t *testing.T) {
	got := parseServerMessages(`["Value missing for Asset: <b>Asset Name</b>", "{\"message\": \"second\"}"]`)
	want := []string{"Value missing for Asset: Asset Name", "second"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}
