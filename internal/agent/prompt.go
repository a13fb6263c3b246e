// Package agent implements the state machine spec.md §4.5 names the Agent
// Loop: AssemblePrompt -> CallProvider -> ParseResponse -> (ExecuteTool ->
// CallProvider)* -> Finalize, plus its prompt-assembly and tool-call
// extraction support. Grounded on haasonsaas/nexus's internal/agent/loop.go
// state-machine shape, generalized to this runtime's simpler single
// tool-call-per-round contract.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/fathomlabs/fathom/internal/registry"
	"github.com/fathomlabs/fathom/internal/store"
)

const personaPrefix = `You are Fathom, an agent with access to a fixed set of tools.
To call a tool, reply with a single JSON object of the shape:
{"tool_call": {"name": "<tool name>", "args": "<tool arguments, as a string>"}}
Only one tool call is read per reply; issue it alone, with no other text.
When you have a final answer for the user, reply with plain text and no tool_call object.`

// AssemblePrompt composes the four ordered fragments spec.md §4.5 names
// into one system prompt string: persona, tool list, identity fragments,
// and a memory-context paragraph built from the top-k relevant recall
// facts for userInput. When the chat has a compaction summary (see
// Compact), it is inserted as an extra fragment between identity and
// memory. The store ranks; this function only composes.
func AssemblePrompt(ctx context.Context, reg *registry.Registry, st store.Store, chatID, userInput string, topK int) (string, error) {
	var b strings.Builder
	b.Grow(2048)

	b.WriteString(personaPrefix)
	b.WriteString("\n\nAvailable tools:\n")
	for _, d := range reg.List() {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}

	if st != nil {
		if identity, err := st.ReadMemory(ctx, "identity"); err == nil && identity != "" {
			b.WriteString("\nIdentity:\n")
			b.WriteString(identity)
			b.WriteString("\n")
		}
		if summary, err := st.ReadMemory(ctx, compactionKey(chatID)); err == nil && summary != "" {
			b.WriteString("\nEarlier conversation (compacted):\n")
			b.WriteString(summary)
			b.WriteString("\n")
		}
		if topK > 0 {
			facts, err := st.RecallQuery(ctx, chatID, userInput, topK)
			if err == nil && len(facts) > 0 {
				b.WriteString("\nRelevant memory:\n")
				for _, f := range facts {
					fmt.Fprintf(&b, "- (%s) %s\n", f.Category, f.Content)
				}
			}
		}
	}

	return b.String(), nil
}

// FinalizePrompt is the fixed synthesized user turn sent after a tool
// executes, instructing the model to finalize based on the tool result.
const FinalizePrompt = "Using the tool result above, give your final answer to the user. Do not call another tool unless it is strictly necessary."
