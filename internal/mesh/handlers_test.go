package mesh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCaptainHandlersRegisterThenHeartbeat(t *testing.T) {
	reg := NewRegistry()
	srv := httptest.NewServer(CaptainHandlers(reg, nil, nil))
	defer srv.Close()

	regResp, err := http.Post(srv.URL+"/mesh/register", "application/json",
		strings.NewReader(`{"name":"crew-1","endpoint":"http://localhost:9101","capabilities":["echo"]}`))
	if err != nil {
		t.Fatalf("register post: %v", err)
	}
	if regResp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d", regResp.StatusCode)
	}
	if reg.Count() != 1 {
		t.Fatalf("count = %d, want 1", reg.Count())
	}

	hbResp, err := http.Post(srv.URL+"/mesh/heartbeat", "application/json",
		strings.NewReader(`{"name":"crew-1","timestamp":1}`))
	if err != nil {
		t.Fatalf("heartbeat post: %v", err)
	}
	if hbResp.StatusCode != http.StatusOK {
		t.Fatalf("heartbeat status = %d", hbResp.StatusCode)
	}
}

func TestCaptainHandlersRejectInvalidToken(t *testing.T) {
	reg := NewRegistry()
	tok := FNVTokenizer{Secret: "s"}
	srv := httptest.NewServer(CaptainHandlers(reg, tok, nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/mesh/register", "application/json",
		strings.NewReader(`{"name":"crew-1","endpoint":"http://localhost:9101","capabilities":[]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 (missing token)", resp.StatusCode)
	}
}

func TestCrewHeartbeatReachesCaptainHandler(t *testing.T) {
	reg := NewRegistry()
	_ = reg.RegisterNode("crew-1", "http://localhost:9101", []string{"echo"})
	srv := httptest.NewServer(CaptainHandlers(reg, nil, nil))
	defer srv.Close()

	crew := &Crew{Name: "crew-1", SelfEndpoint: "http://localhost:9101", CaptainURL: srv.URL, HTTP: http.DefaultClient}
	if err := crew.Heartbeat(context.Background()); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
}

func TestNodeStaleSweepAfterHeartbeatWindow(t *testing.T) {
	reg := NewRegistry()
	_ = reg.RegisterNode("crew-1", "http://localhost:9101", []string{"echo"})
	reg.nodes["crew-1"].LastHeartbeat = time.Now().Add(-4 * time.Second)
	healthy := reg.HealthyNodes(1 * time.Second)
	if len(healthy) != 0 {
		t.Fatalf("expected stale node excluded, got %d", len(healthy))
	}
}
