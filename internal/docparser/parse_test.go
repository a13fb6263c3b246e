package docparser

import (
	"testing"

	"github.com/fathomlabs/fathom/internal/fathomerr"
	"github.com/fathomlabs/fathom/internal/region"
)

func TestParseScalarTypes(t *testing.T) {
	cases := []struct {
		in   string
		want Type
	}{
		{"null", Null},
		{"true", Bool},
		{"false", Bool},
		{"42", Number},
		{"-3.5e2", Number},
		{`"hello"`, String},
		{"[]", Array},
		{"{}", Object},
	}
	for _, c := range cases {
		v, err := Parse([]byte(c.in))
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if v.Type != c.want {
			t.Fatalf("Parse(%q) type = %v, want %v", c.in, v.Type, c.want)
		}
	}
}

func TestParseObjectAccessors(t *testing.T) {
	doc := `{"name":"ada","age":36,"active":true}`
	v, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := v.GetString("name", ""); got != "ada" {
		t.Fatalf("name = %q", got)
	}
	if got := v.GetNumber("age", -1); got != 36 {
		t.Fatalf("age = %v", got)
	}
	if got := v.GetBool("active", false); !got {
		t.Fatalf("active = %v", got)
	}
}

func TestParseArrayIndexing(t *testing.T) {
	v, err := Parse([]byte(`[1,2,3]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	item, ok := v.ArrayGet(1)
	if !ok || item.Num != 2 {
		t.Fatalf("ArrayGet(1) = %v, %v", item, ok)
	}
	if _, ok := v.ArrayGet(5); ok {
		t.Fatalf("expected out-of-bounds miss")
	}
}

func TestParseRejectsTrailingBytes(t *testing.T) {
	_, err := Parse([]byte(`{} garbage`))
	if !fathomerr.Is(err, fathomerr.KindInvalidDocument) {
		t.Fatalf("expected invalid-document error, got %v", err)
	}
}

func TestParseAcceptsEmptyArraysAndObjects(t *testing.T) {
	if _, err := Parse([]byte(`[]`)); err != nil {
		t.Fatalf("empty array: %v", err)
	}
	if _, err := Parse([]byte(`{}`)); err != nil {
		t.Fatalf("empty object: %v", err)
	}
}

func TestParseRejectsExcessiveDepth(t *testing.T) {
	doc := ""
	for i := 0; i < MaxDepth+10; i++ {
		doc += "["
	}
	for i := 0; i < MaxDepth+10; i++ {
		doc += "]"
	}
	_, err := Parse([]byte(doc))
	if !fathomerr.Is(err, fathomerr.KindInvalidDocument) {
		t.Fatalf("expected invalid-document error for deep nesting, got %v", err)
	}
}

func TestStringValuesPointIntoSource(t *testing.T) {
	src := []byte(`{"greeting":"hello \"world\""}`)
	v, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	child, ok := v.Get("greeting")
	if !ok {
		t.Fatalf("missing greeting key")
	}
	// Str still carries the raw escape sequences (spec.md §3: strings are
	// raw; unescaping is a distinct, explicit pass).
	if string(child.Str) != `hello \"world\"` {
		t.Fatalf("Str = %q, want raw escaped text", child.Str)
	}
}

func TestUnescapeProducesCookedText(t *testing.T) {
	src := []byte(`"line1\nline2\tA"`)
	v, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := region.New(256)
	cooked, err := Unescape(v.Str, r)
	if err != nil {
		t.Fatalf("Unescape: %v", err)
	}
	if cooked != "line1\nline2\tA" {
		t.Fatalf("cooked = %q", cooked)
	}
}

func TestParseMalformedDocument(t *testing.T) {
	cases := []string{
		`{"a":}`,
		`[1,2,`,
		`"unterminated`,
		`{"a" "b"}`,
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c)); err == nil {
			t.Fatalf("Parse(%q): expected error", c)
		}
	}
}
