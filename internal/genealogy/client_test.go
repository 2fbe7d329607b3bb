package genealogy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAPIKeyFormat(t *testing.T) {
	at := time.Date(2025, 12, 6, 11, 0, 0, 0, time.Local)
	if got := APIKey(at); got != "1120251206" {
		t.Fatalf("APIKey = %q, want 1120251206", got)
	}
	// Single-digit fields are zero padded.
	at = time.Date(2024, 3, 4, 5, 0, 0, 0, time.Local)
	if got := APIKey(at); got != "0520240304" {
		t.Fatalf("APIKey = %q, want 0520240304", got)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "ggitteam", time.Second)
	c.now = func() time.Time { return time.Date(2025, 12, 6, 11, 0, 0, 0, time.Local) }
	return c, srv
}

func TestUplineSendsAuthParams(t *testing.T) {
	var gotUser, gotKey, gotUsername string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/userUpline" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotUser = r.URL.Query().Get("user")
		gotKey = r.URL.Query().Get("apikey")
		gotUsername = r.URL.Query().Get("username")
		w.Write([]byte(`{"data":[{"lvl":"1","idno":"100","user_name":"Jane Doe","user":"jane99","placement":"L"}]}`))
	})

	nodes, err := c.Upline(context.Background(), "")
	if err != nil {
		t.Fatalf("Upline: %v", err)
	}
	if gotUser != "ggitteam" || gotKey != "1120251206" {
		t.Fatalf("auth params = (%q, %q)", gotUser, gotKey)
	}
	// The root fetch never sends a username; the backend resolves its root.
	if gotUsername != "" {
		t.Fatalf("username param = %q, want empty", gotUsername)
	}
	if len(nodes) != 1 || nodes[0].UserName != "Jane Doe" {
		t.Fatalf("nodes = %+v", nodes)
	}
}

func TestUplineFiltersCachedRows(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"data":[
			{"user_name":"Jane Doe","user":"jane99"},
			{"user_name":"John Smith","user":"jsmith"}
		]}`))
	})

	if _, err := c.Upline(context.Background(), ""); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	nodes, err := c.Upline(context.Background(), "JANE")
	if err != nil {
		t.Fatalf("filtered load: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected filter to use the cache, got %d calls", calls)
	}
	if len(nodes) != 1 || nodes[0].User != "jane99" {
		t.Fatalf("nodes = %+v", nodes)
	}

	// Matching on the user id column works too.
	nodes, err = c.Upline(context.Background(), "jsmith")
	if err != nil {
		t.Fatalf("filtered load: %v", err)
	}
	if len(nodes) != 1 || nodes[0].UserName != "John Smith" {
		t.Fatalf("nodes = %+v", nodes)
	}
}

func TestDownlinePassesUsernameThrough(t *testing.T) {
	var gotUsername string
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sponsoredDownline" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		calls++
		gotUsername = r.URL.Query().Get("username")
		w.Write([]byte(`{"data":[{"idno":"7","user_name":"Kid","account_type":"Retail"}]}`))
	})

	nodes, err := c.Downline(context.Background(), "jane99")
	if err != nil {
		t.Fatalf("Downline: %v", err)
	}
	if gotUsername != "jane99" {
		t.Fatalf("username = %q", gotUsername)
	}
	if len(nodes) != 1 || nodes[0].AccountType != "Retail" {
		t.Fatalf("nodes = %+v", nodes)
	}

	// Downline always goes to the server, even for repeated queries.
	if _, err := c.Downline(context.Background(), "jane99"); err != nil {
		t.Fatalf("Downline: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestEmptyAndMalformedBodiesAreTolerated(t *testing.T) {
	bodies := []string{"", "   ", "not json"}
	for _, body := range bodies {
		payload := body
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		})
		nodes, err := c.Downline(context.Background(), "")
		if err != nil {
			t.Fatalf("body %q: unexpected error %v", payload, err)
		}
		if len(nodes) != 0 {
			t.Fatalf("body %q: nodes = %+v", payload, nodes)
		}
	}
}

func TestErrorStatusIsFatal(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	if _, err := c.Downline(context.Background(), ""); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
