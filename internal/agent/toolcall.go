package agent

import (
	"fmt"
	"strings"

	"github.com/fathomlabs/fathom/internal/docparser"
	"github.com/fathomlabs/fathom/internal/fathomerr"
	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/shield"
)

const toolCallToken = `{"tool_call"`

// ToolCall is the extracted {name, args} pair read from a model reply.
type ToolCall struct {
	Name string
	Args string
}

// ExtractToolCall looks in reply for the literal token {"tool_call"
// tolerating optional whitespace after the opening brace. On a hit it scans
// forward counting brace depth to find the matching close brace, parses
// that substring, reads the object at key tool_call, and unescapes its name
// and args strings (the parser's raw strings still carry escape
// sequences). Returns ok=false (no
// error) when reply carries no tool call — the textual reply is then the
// final answer.
func ExtractToolCall(reply string, r *region.Region) (call ToolCall, ok bool, err error) {
	idx := findToolCallToken(reply)
	if idx < 0 {
		return ToolCall{}, false, nil
	}

	end, err := matchingBrace(reply, idx)
	if err != nil {
		return ToolCall{}, false, fathomerr.New("agent.ExtractToolCall", fathomerr.KindInvalidDocument, err)
	}

	substr := reply[idx : end+1]
	doc, err := docparser.Parse([]byte(substr))
	if err != nil {
		return ToolCall{}, false, fathomerr.New("agent.ExtractToolCall", fathomerr.KindInvalidDocument, err)
	}

	callVal, present := doc.Get("tool_call")
	if !present {
		return ToolCall{}, false, fathomerr.New("agent.ExtractToolCall", fathomerr.KindInvalidDocument,
			fmt.Errorf("matched token but no tool_call key present"))
	}

	rawName := callVal.GetString("name", "")
	name, err := docparser.Unescape([]byte(rawName), r)
	if err != nil {
		return ToolCall{}, false, fathomerr.New("agent.ExtractToolCall", fathomerr.KindInvalidDocument, err)
	}
	if res := shield.Validate([]byte(name), shield.Command); !res.Valid {
		return ToolCall{}, false, fathomerr.New("agent.ExtractToolCall", fathomerr.KindInvalidInput,
			fmt.Errorf("tool_call name %q failed command grammar: %s", name, res.Reason))
	}

	rawArgs := callVal.GetString("args", "")
	args, err := docparser.Unescape([]byte(rawArgs), r)
	if err != nil {
		return ToolCall{}, false, fathomerr.New("agent.ExtractToolCall", fathomerr.KindInvalidDocument, err)
	}

	return ToolCall{Name: name, Args: args}, true, nil
}

// findToolCallToken searches for the literal {"tool_call" token, tolerating
// optional whitespace between the opening brace and the quoted key.
func findToolCallToken(s string) int {
	const brace = '{'
	const key = `"tool_call"`
	for i := 0; i < len(s); i++ {
		if s[i] != brace {
			continue
		}
		j := i + 1
		for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
			j++
		}
		if strings.HasPrefix(s[j:], key) {
			return i
		}
	}
	return -1
}

// matchingBrace scans forward from the opening brace at start, counting
// brace depth (ignoring braces inside quoted strings), and returns the
// index of the matching close brace.
func matchingBrace(s string, start int) (int, error) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unterminated tool_call object starting at offset %d", start)
}
