package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fathomlabs/fathom/internal/config"
	"github.com/fathomlabs/fathom/internal/store"
)

func newTestServer(t *testing.T, cfg config.ProxyConfig, upstream *httptest.Server) (*Server, store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	upstreamCfg := config.ProviderConfig{Provider: config.ProviderOpenAI, APIURL: upstream.URL, APIKey: "up-key"}
	s := NewServer(cfg, upstreamCfg, http.DefaultClient, st, nil)
	s.Limiter = nil // tests issue sequential requests; don't fight the limiter
	return s, st
}

func TestChatCompletionsRejectsWrongToken(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("upstream should not be reached")
	}))
	defer upstream.Close()

	s, _ := newTestServer(t, config.ProxyConfig{InternalToken: "secret"}, upstream)
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/chat/completions", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestChatCompletionsAllowsAllWhenNoTokenConfigured(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`))
	}))
	defer upstream.Close()

	s, _ := newTestServer(t, config.ProxyConfig{}, upstream)
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(`{"model":"gpt-4o-mini"}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestChatCompletionsLogsUsageOnSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"hi"}}],"usage":{"prompt_tokens":30,"completion_tokens":20}}`))
	}))
	defer upstream.Close()

	s, st := newTestServer(t, config.ProxyConfig{}, upstream)
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	if _, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(`{}`)); err != nil {
		t.Fatalf("Post: %v", err)
	}

	total, err := st.LLMTotalTokens(context.Background(), DefaultCaller, time.Now().UTC())
	if err != nil {
		t.Fatalf("LLMTotalTokens: %v", err)
	}
	if total != 50 {
		t.Fatalf("total = %d, want 50", total)
	}
}

func TestChatCompletionsRejectsWhenBudgetExceeded(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("upstream should not be reached once budget is exceeded")
	}))
	defer upstream.Close()

	s, st := newTestServer(t, config.ProxyConfig{DailyTokenBudget: 10}, upstream)
	_ = st.LLMLog(context.Background(), store.UsageRecord{Caller: DefaultCaller, TokensIn: 8, TokensOut: 5, RecordedAt: time.Now().UTC()})

	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
}

func TestChatCompletionsReturns502WhenUpstreamUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // force a connection failure

	s, st := newTestServer(t, config.ProxyConfig{}, upstream)
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}

	total, err := st.LLMTotalTokens(context.Background(), DefaultCaller, time.Now().UTC())
	if err != nil {
		t.Fatalf("LLMTotalTokens: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected a zero-token usage record logged on upstream failure, total = %d", total)
	}
}

func TestChatCompletionsRejectsOversizedBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("upstream should not be reached")
	}))
	defer upstream.Close()

	s, _ := newTestServer(t, config.ProxyConfig{}, upstream)
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	oversized := strings.Repeat("a", MaxBodyBytes+1024)
	resp, err := http.Post(srv.URL+"/v1/chat/completions", "application/json", strings.NewReader(oversized))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", resp.StatusCode)
	}
}

func TestHealthEndpointReportsOK(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer upstream.Close()

	s, _ := newTestServer(t, config.ProxyConfig{}, upstream)
	srv := httptest.NewServer(s.handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestListenAndServeRejectsNonLoopbackAddr(t *testing.T) {
	s := &Server{Config: config.ProxyConfig{ListenAddr: "0.0.0.0:7432"}}
	if err := s.ListenAndServe(context.Background()); err == nil {
		t.Fatalf("expected error for non-loopback bind address")
	}
}
