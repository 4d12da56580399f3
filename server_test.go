package oxifuj

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, writable bool) (*Store, *httptest.Server) {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	hs := NewHTTPServer(s, writable)
	ts := httptest.NewServer(http.HandlerFunc(hs.handleSPARQL))
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHandleSPARQLGetSelect(t *testing.T) {
	s, ts := newTestServer(t, true)
	if err := s.Update(context.Background(), `INSERT DATA { <http://example.org/s> <http://example.org/p> "o" }`, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	resp, err := http.Get(ts.URL + "/?query=" + url.QueryEscape(`SELECT ?o WHERE { ?s <http://example.org/p> ?o }`))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "sparql-results+json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHandleSPARQLMissingQueryIsBadRequest(t *testing.T) {
	_, ts := newTestServer(t, true)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleUpdateRequiresPost(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	hs := NewHTTPServer(s, true)
	ts := httptest.NewServer(http.HandlerFunc(hs.handleUpdate))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHandleUpdatePostInsertsData(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	hs := NewHTTPServer(s, true)
	ts := httptest.NewServer(http.HandlerFunc(hs.handleUpdate))
	defer ts.Close()

	form := url.Values{"update": {`INSERT DATA { <http://example.org/s> <http://example.org/p> "o" }`}}
	resp, err := http.PostForm(ts.URL+"/", form)
	if err != nil {
		t.Fatalf("PostForm: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	res, err := s.Query(context.Background(), `ASK { <http://example.org/s> <http://example.org/p> "o" }`, QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer res.Close()
	if !res.Boolean {
		t.Error("expected the update POSTed via form encoding to have been applied")
	}
}
