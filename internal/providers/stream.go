package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fathomlabs/fathom/internal/fathomerr"
)

// StreamCallback receives each delta text chunk as it arrives. Returning
// false cancels the request cleanly (spec.md §4.5: "a callback returning
// false cancels the request cleanly").
type StreamCallback func(delta string) bool

// CallStream performs a streaming provider call, parsing Server-Sent-Events
// line-by-line and invoking cb with each delta. It still accumulates and
// returns the full body for final Shield validation by the caller.
func CallStream(ctx context.Context, client HTTPDoer, spec Spec, url, apiKey string, req Request, cb StreamCallback) (Response, error) {
	bodyBytes, err := buildStreamingBody(req)
	if err != nil {
		return Response{}, fathomerr.New(op, fathomerr.KindParse, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return Response{}, fathomerr.New(op, fathomerr.KindConnect, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if name, value := AuthHeader(spec.Auth, apiKey); name != "" {
		httpReq.Header.Set(name, value)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, fathomerr.New(op, fathomerr.KindConnect, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fathomerr.New(op, fathomerr.KindConnect,
			fmt.Errorf("provider %s returned status %d", spec.Kind, resp.StatusCode))
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return Response{}, fathomerr.New(op, fathomerr.KindTimeout, ctx.Err())
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}
		delta, ok := decodeStreamDelta(payload)
		if !ok {
			continue
		}
		full.WriteString(delta)
		if cb != nil && !cb(delta) {
			return Response{Content: full.String()}, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Response{}, fathomerr.New(op, fathomerr.KindIO, err)
	}
	return Response{Content: full.String()}, nil
}

func buildStreamingBody(req Request) ([]byte, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	for _, h := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserInput})

	body := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}
	return json.Marshal(body)
}

func decodeStreamDelta(payload string) (string, bool) {
	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, true
}
