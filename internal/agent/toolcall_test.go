package agent

import (
	"testing"

	"github.com/fathomlabs/fathom/internal/region"
)

func TestExtractToolCallFindsTokenAndParsesArgs(t *testing.T) {
	r := region.New(4096)
	reply := `I will check the weather. {"tool_call": {"name": "weather", "args": "city=tokyo"}} thanks`
	call, ok, err := ExtractToolCall(reply, r)
	if err != nil {
		t.Fatalf("ExtractToolCall: %v", err)
	}
	if !ok {
		t.Fatalf("expected a tool call to be found")
	}
	if call.Name != "weather" || call.Args != "city=tokyo" {
		t.Fatalf("call = %+v", call)
	}
}

func TestExtractToolCallTakesOnlyFirstOccurrence(t *testing.T) {
	r := region.New(4096)
	reply := `{"tool_call": {"name": "first", "args": ""}} garbage {"tool_call": {"name": "second", "args": ""}}`
	call, ok, err := ExtractToolCall(reply, r)
	if err != nil {
		t.Fatalf("ExtractToolCall: %v", err)
	}
	if !ok || call.Name != "first" {
		t.Fatalf("call = %+v, want first occurrence only", call)
	}
}

func TestExtractToolCallNoneFoundReturnsFalse(t *testing.T) {
	r := region.New(4096)
	call, ok, err := ExtractToolCall("just a plain final answer", r)
	if err != nil {
		t.Fatalf("ExtractToolCall: %v", err)
	}
	if ok {
		t.Fatalf("call = %+v, want none found", call)
	}
}

func TestExtractToolCallToleratesWhitespaceAfterBrace(t *testing.T) {
	r := region.New(4096)
	reply := "{  \"tool_call\": {\"name\": \"echo\", \"args\": \"hi\"}}"
	call, ok, err := ExtractToolCall(reply, r)
	if err != nil {
		t.Fatalf("ExtractToolCall: %v", err)
	}
	if !ok || call.Name != "echo" {
		t.Fatalf("call = %+v", call)
	}
}

func TestExtractToolCallRejectsInvalidCommandGrammar(t *testing.T) {
	r := region.New(4096)
	reply := `{"tool_call": {"name": "rm -rf / ; echo", "args": ""}}`
	_, _, err := ExtractToolCall(reply, r)
	if err == nil {
		t.Fatalf("expected command-grammar rejection")
	}
}

func TestExtractToolCallUnterminatedObjectErrors(t *testing.T) {
	r := region.New(4096)
	reply := `{"tool_call": {"name": "echo", "args": "hi"`
	_, _, err := ExtractToolCall(reply, r)
	if err == nil {
		t.Fatalf("expected unterminated-object error")
	}
}
