package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/store"
)

const defaultRecallLimit = 5

// NewRecall builds a recall tool bound to a store and chat id. Args is
// either "store|category|importance|content" to persist a fact, or any
// other text, which is treated as a query and answered with ranked
// matches from recall memory.
func NewRecall(st store.Store, chatID string) func(args []byte, r *region.Region) ([]byte, error) {
	return func(args []byte, r *region.Region) ([]byte, error) {
		ctx := context.Background()
		raw := string(args)

		if rest, ok := strings.CutPrefix(raw, "store|"); ok {
			return recallStore(ctx, st, chatID, rest, r)
		}

		query := strings.TrimSpace(raw)
		if query == "" {
			return writeString(r, "Usage: <query> | store|category|importance|content")
		}
		facts, err := st.RecallQuery(ctx, chatID, query, defaultRecallLimit)
		if err != nil {
			return writeErrorf(r, "recall query failed: %v", err)
		}
		if len(facts) == 0 {
			return writeString(r, "No matching facts.")
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Facts (%d):\n", len(facts))
		for _, f := range facts {
			fmt.Fprintf(&b, "  [%s, score %.2f] %s\n", f.Category, f.ScoreWhenReturned, f.Content)
		}
		return writeString(r, b.String())
	}
}

func recallStore(ctx context.Context, st store.Store, chatID, rest string, r *region.Region) ([]byte, error) {
	parts := strings.SplitN(rest, "|", 3)
	if len(parts) != 3 {
		return writeString(r, "Error: usage: store|category|importance|content")
	}
	category := store.RecallCategory(parts[0])
	importance, err := strconv.Atoi(parts[1])
	if err != nil || importance < 1 || importance > 10 {
		return writeString(r, "Error: importance must be an integer 1..10")
	}
	content := parts[2]
	if content == "" {
		return writeString(r, "Error: content must not be empty")
	}

	if err := st.RecallStore(ctx, chatID, store.Fact{Category: category, Content: content, Importance: importance}); err != nil {
		return writeErrorf(r, "recall store failed: %v", err)
	}
	return writeString(r, "Fact stored.")
}
