package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/fathomlabs/fathom/internal/config"
	"github.com/fathomlabs/fathom/internal/fathomerr"
	"github.com/fathomlabs/fathom/internal/providers"
)

const compactionPrompt = `Summarize the conversation below into a short paragraph that preserves
every fact, decision, and open task a later reply would need. Do not call a tool.`

// compactHistoryLimit bounds how many stored messages feed one compaction
// call; older turns past this are assumed already folded into an earlier
// summary.
const compactHistoryLimit = 200

func compactionKey(chatID string) string {
	return "conversation_summary:" + chatID
}

// Compact runs the same provider chain Run uses, with tool rounds disabled
// and the "off" think-level token budget, to fold chatID's stored
// conversation into a short summary. The summary replaces any prior one
// under the same memory key; RecentMessages itself is left untouched, since
// Store exposes no message-deletion method — AssemblePrompt simply prefers
// the compacted summary over re-reading the full transcript.
func (l *Loop) Compact(ctx context.Context, chatID string) (string, error) {
	const op = "agent.Loop.Compact"

	if l.Store == nil {
		return "", fathomerr.New(op, fathomerr.KindConfig, fmt.Errorf("compaction requires a store"))
	}

	messages, err := l.Store.RecentMessages(ctx, chatID, compactHistoryLimit)
	if err != nil {
		return "", fathomerr.New(op, fathomerr.KindIO, err)
	}
	if len(messages) == 0 {
		return "", nil
	}

	var transcript strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}

	think := config.ThinkLevelPins[config.ThinkOff]
	req := providers.Request{
		Temperature:  think.Temperature,
		MaxTokens:    think.MaxTokens,
		SystemPrompt: compactionPrompt,
		UserInput:    transcript.String(),
	}

	result, err := providers.CallChain(ctx, l.HTTP, l.primaryProvider(), l.Config.LLMFallbacks, req)
	if err != nil {
		return "", err
	}

	summary := result.Response.Content
	if err := l.Store.WriteMemory(ctx, compactionKey(chatID), summary); err != nil {
		return "", fathomerr.New(op, fathomerr.KindIO, err)
	}
	return summary, nil
}
