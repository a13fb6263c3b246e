package agent

import (
	"context"
	"net/http"
	"testing"

	"github.com/fathomlabs/fathom/internal/store"
)

func TestCompactSummarizesAndStoresUnderMemoryKey(t *testing.T) {
	loop, _ := newTestLoop(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "user asked about the weather twice"}}]}`))
	})

	ctx := context.Background()
	if err := loop.Store.AppendMessage(ctx, "chat-1", store.Message{Role: "user", Content: "what's the weather"}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	summary, err := loop.Compact(ctx, "chat-1")
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if summary != "user asked about the weather twice" {
		t.Fatalf("summary = %q", summary)
	}

	stored, err := loop.Store.ReadMemory(ctx, compactionKey("chat-1"))
	if err != nil {
		t.Fatalf("ReadMemory: %v", err)
	}
	if stored != summary {
		t.Fatalf("stored memory = %q, want %q", stored, summary)
	}
}

func TestCompactNoHistoryIsNoop(t *testing.T) {
	loop, _ := newTestLoop(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("provider should not be called with no history")
	})
	summary, err := loop.Compact(context.Background(), "empty-chat")
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if summary != "" {
		t.Fatalf("summary = %q, want empty", summary)
	}
}
