// Package proxy implements the loopback LLM Proxy spec.md §4.8 names: an
// OpenAI-compatible endpoint exposed only to 127.0.0.1 that authenticates
// internal callers by bearer token, enforces a per-caller daily token
// budget, forwards the request body verbatim to the configured upstream
// provider, and logs a usage record regardless of outcome. Grounded on
// original_source/seazero/bridge/sea_proxy.c, reimplemented over net/http
// instead of raw POSIX sockets + pthread. The size-capped, token-gated
// contract is kept. Connections are not handled one at a time: net/http
// serves them concurrently, and Limiter only caps the rate at which
// chat-completions requests are admitted.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/fathomlabs/fathom/internal/config"
	"github.com/fathomlabs/fathom/internal/fathomerr"
	"github.com/fathomlabs/fathom/internal/observability"
	"github.com/fathomlabs/fathom/internal/providers"
	"github.com/fathomlabs/fathom/internal/store"
)

// Resource caps spec.md §4.8 names.
const (
	MaxHeaderBytes = 8 << 10
	MaxBodyBytes   = 256 << 10
	ReceiveTimeout = 30 * time.Second
	DefaultCaller  = "agent-zero" // the conventional internal-client identity
)

// Server is the loopback LLM Proxy. It owns its own listening socket,
// distinct from the Agent Loop's worker, per spec.md §4.8's last
// paragraph.
type Server struct {
	Config   config.ProxyConfig
	Upstream config.ProviderConfig
	HTTP     providers.HTTPDoer
	Store    store.Store
	Log      *slog.Logger

	// Metrics records proxy request outcomes; nil disables it.
	Metrics *observability.Metrics

	// Limiter caps the rate of admitted chat-completions requests; a request
	// it refuses gets 429. /health and /metrics are not limited. Nil
	// disables limiting.
	Limiter *rate.Limiter
}

// NewServer builds a Server with a conservative default limiter: one
// chat-completions request per second, burst 1, shared by all callers.
// It bounds the request rate, not the number of requests in flight.
func NewServer(cfg config.ProxyConfig, upstream config.ProviderConfig, httpClient providers.HTTPDoer, st store.Store, log *slog.Logger) *Server {
	return &Server{
		Config:   cfg,
		Upstream: upstream,
		HTTP:     httpClient,
		Store:    st,
		Log:      log,
		Limiter:  rate.NewLimiter(rate.Limit(1), 1),
	}
}

// ListenAndServe binds a 127.0.0.1-only listener at Config.ListenAddr
// (default 127.0.0.1:7432) and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.Config.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:7432"
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil || (host != "127.0.0.1" && host != "localhost") {
		return fathomerr.New("proxy.ListenAndServe", fathomerr.KindConfig,
			fmt.Errorf("proxy must bind loopback only, got %q", addr))
	}

	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return fathomerr.New("proxy.ListenAndServe", fathomerr.KindIO, err)
	}

	srv := &http.Server{
		Handler:        s.handler(),
		MaxHeaderBytes: MaxHeaderBytes,
		ReadTimeout:    ReceiveTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return fathomerr.New("proxy.ListenAndServe", fathomerr.KindIO, err)
	}
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.NotFound(w, r)
	})
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": s.serviceName()})
}

func (s *Server) serviceName() string {
	if s.Config.ServiceName != "" {
		return s.Config.ServiceName
	}
	return "fathom-proxy"
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	defer s.recordRequest(r.URL.Path, sw, start)

	w = sw
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if s.Limiter != nil && !s.Limiter.Allow() {
		writeJSONError(w, http.StatusTooManyRequests, "proxy is busy, retry shortly")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > MaxBodyBytes {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "request body exceeds 256KiB cap")
		return
	}

	if !s.authorize(r) {
		s.audit(r.Context(), "auth_failure", "invalid or missing bearer token")
		writeJSONError(w, http.StatusUnauthorized, "invalid authorization token")
		return
	}

	if !s.budgetOK(r.Context()) {
		s.audit(r.Context(), "budget_exceeded", "")
		if s.Metrics != nil {
			s.Metrics.ProxyBudgetRejections.WithLabelValues(DefaultCaller).Inc()
		}
		writeJSONError(w, http.StatusTooManyRequests, "daily token budget exceeded")
		return
	}

	s.forward(r.Context(), w, body)
}

// statusWriter captures the status code written so recordRequest can label
// the outcome without every handler branch threading it through manually.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

func (s *Server) recordRequest(route string, sw *statusWriter, start time.Time) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.ProxyRequestCounter.WithLabelValues(route, fmt.Sprintf("%d", sw.status)).Inc()
	s.Metrics.ProxyRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

func (s *Server) authorize(r *http.Request) bool {
	if s.Config.InternalToken == "" {
		return true // no token configured = allow all, matching the original's dev-mode default
	}
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return false
	}
	return auth[len(prefix):] == s.Config.InternalToken
}

func (s *Server) budgetOK(ctx context.Context) bool {
	if s.Config.DailyTokenBudget <= 0 || s.Store == nil {
		return true
	}
	used, err := s.Store.LLMTotalTokens(ctx, DefaultCaller, time.Now().UTC())
	if err != nil {
		return true // store unreachable: fail open, matching the original's "no DB = can't track"
	}
	return used < s.Config.DailyTokenBudget
}

func (s *Server) forward(ctx context.Context, w http.ResponseWriter, body []byte) {
	spec, url, model, err := providers.Resolve(s.Upstream)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "proxy misconfigured: unknown upstream provider")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to build upstream request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if name, value := providers.AuthHeader(spec.Auth, s.Upstream.APIKey); name != "" {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := s.HTTP.Do(req)
	latency := time.Since(start)

	if err != nil {
		s.logUsage(ctx, model, 0, 0, latency, "error")
		writeJSONError(w, http.StatusBadGateway, "upstream LLM provider unreachable")
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		s.logUsage(ctx, model, 0, 0, latency, "error")
		writeJSONError(w, http.StatusBadGateway, "failed to read upstream response")
		return
	}

	promptTokens, completionTokens := extractUsage(respBody)
	status := "ok"
	if resp.StatusCode != http.StatusOK {
		status = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	s.logUsage(ctx, model, promptTokens, completionTokens, latency, status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)
}

func (s *Server) logUsage(ctx context.Context, model string, tokensIn, tokensOut int, latency time.Duration, status string) {
	if s.Store == nil {
		return
	}
	_ = s.Store.LLMLog(ctx, store.UsageRecord{
		Caller:     DefaultCaller,
		Provider:   string(s.Upstream.Provider),
		Model:      model,
		TokensIn:   tokensIn,
		TokensOut:  tokensOut,
		LatencyMS:  latency.Milliseconds(),
		Status:     status,
		RecordedAt: time.Now().UTC(),
	})
}

func (s *Server) audit(ctx context.Context, kind, detail string) {
	if s.Store != nil {
		_ = s.Store.LogEvent(ctx, kind, "proxy", detail)
	}
	if s.Log != nil {
		s.Log.Warn("proxy: "+kind, "detail", detail)
	}
}

func extractUsage(body []byte) (promptTokens, completionTokens int) {
	var parsed struct {
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, 0
	}
	return parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "proxy_error", "code": status},
	})
}
