package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fathomlabs/fathom/internal/fathomerr"
)

const op = "providers.Call"

// HistoryTurn is one prior conversation turn fed into a provider call.
type HistoryTurn struct {
	Role    string
	Content string
}

// Request is the normalized input to a single provider call.
type Request struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	History      []HistoryTurn
	UserInput    string
}

// Response is the normalized output of a successful provider call.
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// BuildBody constructs the wire request body using go-openai's
// ChatCompletionRequest type — the actual wire format every configured
// provider receives verbatim, per this package's documented soft spot.
func BuildBody(req Request) ([]byte, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, h := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserInput,
	})

	body := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	return json.Marshal(body)
}

// HTTPDoer is the minimal surface Call needs from an HTTP client; satisfied
// by *http.Client and by internal/net/httpclient's default implementation.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Call performs one non-streaming provider call: builds the wire body,
// attaches the provider's auth header, POSTs to url, and normalizes the
// reply. Any non-200 response is reported as a connect-kind error so the
// Agent Loop's fallback-chain policy treats it uniformly with network
// failures.
func Call(ctx context.Context, client HTTPDoer, spec Spec, url, apiKey string, req Request) (Response, error) {
	bodyBytes, err := BuildBody(req)
	if err != nil {
		return Response{}, fathomerr.New(op, fathomerr.KindParse, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return Response{}, fathomerr.New(op, fathomerr.KindConnect, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if name, value := AuthHeader(spec.Auth, apiKey); name != "" {
		httpReq.Header.Set(name, value)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, fathomerr.New(op, fathomerr.KindConnect, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Response{}, fathomerr.New(op, fathomerr.KindIO, err)
	}

	if resp.StatusCode != http.StatusOK {
		return Response{}, fathomerr.New(op, fathomerr.KindConnect,
			fmt.Errorf("provider %s returned status %d: %s", spec.Kind, resp.StatusCode, truncate(respBytes, 256)))
	}

	return parseContent(respBytes)
}

func parseContent(body []byte) (Response, error) {
	var parsed openai.ChatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fathomerr.New(op, fathomerr.KindParse, fmt.Errorf("decode provider reply: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fathomerr.New(op, fathomerr.KindParse, fmt.Errorf("provider reply has no choices"))
	}
	return Response{
		Content:          parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// DefaultTimeout is the HTTPS client timeout spec.md §5 names: 120s total.
const DefaultTimeout = 120 * time.Second
