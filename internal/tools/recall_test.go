package tools

import (
	"strings"
	"testing"

	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/store"
)

func TestRecallStoreThenQueryFindsFact(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	recall := NewRecall(st, "chat-1")
	r := region.New(4096)

	out, err := recall([]byte("store|fact|7|the sky is blue"), r)
	if err != nil {
		t.Fatalf("recall store: %v", err)
	}
	if !strings.Contains(string(out), "stored") {
		t.Fatalf("out = %q", out)
	}

	out, err = recall([]byte("sky"), r)
	if err != nil {
		t.Fatalf("recall query: %v", err)
	}
	if !strings.Contains(string(out), "the sky is blue") {
		t.Fatalf("out = %q", out)
	}
}

func TestRecallQueryWithNoMatchesReportsNone(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	recall := NewRecall(st, "chat-1")
	r := region.New(4096)
	out, err := recall([]byte("anything"), r)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if !strings.Contains(string(out), "No matching facts") {
		t.Fatalf("out = %q", out)
	}
}

func TestRecallStoreRejectsBadImportance(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	recall := NewRecall(st, "chat-1")
	r := region.New(1024)
	out, err := recall([]byte("store|fact|99|too important"), r)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if !strings.Contains(string(out), "importance must be") {
		t.Fatalf("out = %q", out)
	}
}
