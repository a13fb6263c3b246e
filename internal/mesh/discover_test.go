package mesh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDiscoverPeersRegistersEachValidEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"name": "crew-a", "endpoint": "http://localhost:9101", "capabilities": ["echo"]},
			{"name": "", "endpoint": "http://localhost:9102"},
			{"name": "crew-b", "endpoint": "http://localhost:9103", "capabilities": ["file_read"]}
		]`))
	}))
	defer srv.Close()

	reg := NewRegistry()
	n, err := DiscoverPeers(context.Background(), srv.Client(), reg, srv.URL)
	if err != nil {
		t.Fatalf("DiscoverPeers: %v", err)
	}
	if n != 2 {
		t.Fatalf("registered = %d, want 2", n)
	}
	if reg.RouteTool("echo", time.Minute) == nil {
		t.Fatal("expected crew-a routable for echo")
	}
	if reg.RouteTool("file_read", time.Minute) == nil {
		t.Fatal("expected crew-b routable for file_read")
	}
}

func TestDiscoverPeersRejectsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := NewRegistry()
	if _, err := DiscoverPeers(context.Background(), srv.Client(), reg, srv.URL); err == nil {
		t.Fatal("expected error for non-200 discovery response")
	}
}
