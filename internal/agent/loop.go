package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fathomlabs/fathom/internal/config"
	"github.com/fathomlabs/fathom/internal/fathomerr"
	"github.com/fathomlabs/fathom/internal/observability"
	"github.com/fathomlabs/fathom/internal/providers"
	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/registry"
	"github.com/fathomlabs/fathom/internal/shield"
	"github.com/fathomlabs/fathom/internal/store"
)

// maxExtraHistory bounds the rolling tool-round history spec.md §4.5 names
// ("bounded at ~16 entries").
const maxExtraHistory = 16

// StreamCallback forwards delta text as it streams in; see providers.StreamCallback.
type StreamCallback = providers.StreamCallback

// Loop runs the agent state machine for one user message at a time. It is
// safe for concurrent use across distinct chats; a single Loop instance is
// typically shared by the chat bridge and the proxy's internal callers.
type Loop struct {
	Registry *registry.Registry
	Store    store.Store
	HTTP     providers.HTTPDoer
	Config   config.Config
	Log      *slog.Logger
	Audit    registry.AuditFunc

	// Metrics records provider and tool activity; nil disables it.
	Metrics *observability.Metrics

	// RegionSize sizes the per-request arena. Defaults to 1 MiB.
	RegionSize int

	mu       sync.Mutex
	provider config.ProviderKind // runtime override; empty means Config.LLMProvider
	model    string              // runtime override; empty means Config.LLMModel
}

// SetProvider hot-swaps the primary provider for every subsequent Run call
// and resets the model to that provider's default (its providers.Lookup
// DefaultModel), replacing any model set earlier by SetModel, so the
// previous provider's model name is never carried forward. kind must be a
// provider providers.Lookup recognizes.
func (l *Loop) SetProvider(kind config.ProviderKind) error {
	spec, ok := providers.Lookup(kind)
	if !ok {
		return fathomerr.New("agent.Loop.SetProvider", fathomerr.KindConfig, fmt.Errorf("unknown provider %q", kind))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.provider = kind
	l.model = spec.DefaultModel
	return nil
}

// SetModel overrides the model name for the current provider, leaving the
// provider selection untouched.
func (l *Loop) SetModel(model string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.model = model
}

// primaryProvider builds the provider config for the next Run call,
// applying any SetProvider/SetModel overrides over the static config.
func (l *Loop) primaryProvider() config.ProviderConfig {
	l.mu.Lock()
	defer l.mu.Unlock()

	pc := config.ProviderConfig{Provider: l.Config.LLMProvider, APIURL: l.Config.LLMAPIURL, APIKey: l.Config.LLMAPIKey, Model: l.Config.LLMModel}
	if l.provider != "" {
		pc.Provider = l.provider
		pc.APIURL = ""
		pc.APIKey = l.Config.LLMAPIKey
	}
	if l.model != "" {
		pc.Model = l.model
	}
	return pc
}

// Result is the outcome of one Run call: the final text, which provider
// answered, and how many tool rounds were executed.
type Result struct {
	Text       string
	Provider   config.ProviderKind
	Model      string
	ToolRounds int
}

// Run executes AssemblePrompt -> CallProvider -> ParseResponse ->
// (ExecuteTool -> CallProvider)* -> Finalize for one user message. cb may
// be nil; when non-nil, every provider call (tool rounds included) streams
// from the primary provider alone, without the fallback chain, and its
// deltas are forwarded to cb (a false return cancels cleanly).
func (l *Loop) Run(ctx context.Context, chatID, userInput string, cb StreamCallback) (Result, error) {
	const op = "agent.Loop.Run"

	regionSize := l.RegionSize
	if regionSize <= 0 {
		regionSize = 1 << 20
	}
	r := region.New(regionSize)
	defer r.Destroy()

	if res := shield.Validate([]byte(userInput), shield.SafeText); !res.Valid || shield.DetectInputInjection([]byte(userInput)) {
		return Result{}, fathomerr.New(op, fathomerr.KindInvalidInput, fmt.Errorf("user input failed safety check"))
	}

	l.appendMessage(ctx, chatID, store.Message{Role: "user", Content: userInput})

	systemPrompt, err := AssemblePrompt(ctx, l.Registry, l.Store, chatID, userInput, 5)
	if err != nil {
		return Result{}, fathomerr.New(op, fathomerr.KindInvalidInput, err)
	}

	think := config.ThinkLevelPins[l.Config.ThinkLevel]
	if think.MaxTokens == 0 {
		think = config.ThinkLevelPins[config.ThinkMedium]
	}

	var extraHistory []providers.HistoryTurn
	currentInput := userInput
	dispatcher := registry.NewDispatcher(l.Registry, l.Log, l.Audit)

	primary := l.primaryProvider()

	toolRounds := 0
	for {
		req := providers.Request{
			Temperature:  think.Temperature,
			MaxTokens:    think.MaxTokens,
			SystemPrompt: systemPrompt,
			History:      extraHistory,
			UserInput:    currentInput,
		}

		callStart := time.Now()
		var chainResult providers.ChainResult
		if cb != nil {
			chainResult, err = l.callStreamChain(ctx, primary, req, cb)
		} else {
			chainResult, err = providers.CallChain(ctx, l.HTTP, primary, l.Config.LLMFallbacks, req)
		}
		l.recordLLMCall(chainResult, time.Since(callStart), err)
		if err != nil {
			return Result{}, err
		}

		call, ok, extractErr := ExtractToolCall(chainResult.Response.Content, r)
		if extractErr != nil {
			l.logWarn("tool-call extraction failed", "error", extractErr)
			return Result{}, extractErr
		}
		if !ok {
			result, finalizeErr := l.finalize(chainResult, toolRounds)
			if finalizeErr == nil {
				l.appendMessage(ctx, chatID, store.Message{Role: "assistant", Content: result.Text})
			}
			return result, finalizeErr
		}

		if toolRounds >= l.Config.MaxToolRounds {
			return Result{}, fathomerr.New(op, fathomerr.KindTimeout, fmt.Errorf("max_tool_rounds (%d) exceeded", l.Config.MaxToolRounds))
		}
		toolRounds++

		toolStart := time.Now()
		out, dispatchErr := dispatcher.Dispatch(ctx, call.Name, []byte(call.Args), r)
		l.recordToolCall(call.Name, time.Since(toolStart), dispatchErr)
		toolResult := ""
		if dispatchErr != nil {
			toolResult = fmt.Sprintf("tool %q failed: %v", call.Name, dispatchErr)
		} else {
			toolResult = string(out)
		}

		extraHistory = appendBounded(extraHistory,
			providers.HistoryTurn{Role: "assistant", Content: chainResult.Response.Content},
			providers.HistoryTurn{Role: "tool", Content: toolResult},
		)
		l.appendMessage(ctx, chatID, store.Message{Role: "assistant", Content: chainResult.Response.Content})
		l.appendMessage(ctx, chatID, store.Message{Role: "tool", Content: toolResult, ToolName: call.Name})
		currentInput = FinalizePrompt
	}
}

// appendMessage persists one transcript turn, logging rather than failing
// the request on a store error; a dropped history write shouldn't sink an
// otherwise-successful reply.
func (l *Loop) appendMessage(ctx context.Context, chatID string, msg store.Message) {
	if l.Store == nil {
		return
	}
	if err := l.Store.AppendMessage(ctx, chatID, msg); err != nil {
		l.logWarn("failed to persist conversation turn", "chat_id", chatID, "role", msg.Role, "error", err)
	}
}

func (l *Loop) callStreamChain(ctx context.Context, pc config.ProviderConfig, req providers.Request, cb StreamCallback) (providers.ChainResult, error) {
	spec, url, model, err := providers.Resolve(pc)
	if err != nil {
		return providers.ChainResult{}, fathomerr.New("agent.Loop.callStreamChain", fathomerr.KindConfig, err)
	}
	req.Model = model
	resp, err := providers.CallStream(ctx, l.HTTP, spec, url, pc.APIKey, req, cb)
	if err != nil {
		return providers.ChainResult{}, err
	}
	return providers.ChainResult{Response: resp, Provider: pc.Provider, Model: model}, nil
}

func (l *Loop) finalize(cr providers.ChainResult, round int) (Result, error) {
	text := cr.Response.Content
	if shield.DetectOutputInjection([]byte(text)) {
		l.logWarn("output injection detected, substituting refusal")
		return Result{Text: shield.RefusalText, Provider: cr.Provider, Model: cr.Model, ToolRounds: round},
			fathomerr.New("agent.Loop.finalize", fathomerr.KindInvalidInput, errors.New(shield.RefusalText))
	}
	return Result{Text: text, Provider: cr.Provider, Model: cr.Model, ToolRounds: round}, nil
}

func (l *Loop) recordLLMCall(cr providers.ChainResult, elapsed time.Duration, err error) {
	if l.Metrics == nil {
		return
	}
	provider := string(cr.Provider)
	model := cr.Model
	status := "ok"
	if err != nil {
		status = "error"
	}
	l.Metrics.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	l.Metrics.LLMRequestDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
	if err == nil {
		l.Metrics.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(cr.Response.PromptTokens))
		l.Metrics.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(cr.Response.CompletionTokens))
	}
}

func (l *Loop) recordToolCall(tool string, elapsed time.Duration, err error) {
	if l.Metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	l.Metrics.ToolExecutionCounter.WithLabelValues(tool, status).Inc()
	l.Metrics.ToolExecutionDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (l *Loop) logWarn(msg string, args ...any) {
	if l.Log != nil {
		l.Log.Warn(msg, args...)
	}
}

func appendBounded(history []providers.HistoryTurn, turns ...providers.HistoryTurn) []providers.HistoryTurn {
	history = append(history, turns...)
	if len(history) > maxExtraHistory {
		history = history[len(history)-maxExtraHistory:]
	}
	return history
}
