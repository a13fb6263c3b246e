// Package shield is the input/output grammar validator ("the Shield") that
// gates every byte entering or leaving the trust boundary: named
// byte-class grammars, asymmetric injection detection for input versus
// model output, and workspace-scoped path canonicalization.
package shield

import (
	"fmt"
	"log/slog"

	"github.com/fathomlabs/fathom/internal/fathomerr"
)

// Grammar names a fixed character-class predicate over bytes. The set is
// closed; do not add ad-hoc grammars.
type Grammar int

const (
	SafeText Grammar = iota
	Numeric
	Alpha
	Alphanum
	Filename
	URL
	JSON
	Command
	Hex
	Base64
)

func (g Grammar) String() string {
	switch g {
	case SafeText:
		return "safe-text"
	case Numeric:
		return "numeric"
	case Alpha:
		return "alpha"
	case Alphanum:
		return "alphanum"
	case Filename:
		return "filename"
	case URL:
		return "url"
	case JSON:
		return "json"
	case Command:
		return "command"
	case Hex:
		return "hex"
	case Base64:
		return "base64"
	default:
		return "unknown"
	}
}

// Result is the outcome of validating a byte slice against a Grammar.
type Result struct {
	Valid      bool
	FailPos    int
	FailByte   byte
	Reason     string
}

// classFn reports whether b is a member of a grammar's character class.
type classFn func(b byte, pos int) bool

func classFor(g Grammar) classFn {
	switch g {
	case SafeText:
		return func(b byte, _ int) bool { return b >= 0x20 && b < 0x7F || b == '\n' || b == '\t' }
	case Numeric:
		return func(b byte, _ int) bool {
			return (b >= '0' && b <= '9') || b == '.' || b == '-' || b == '+' || b == 'e' || b == 'E'
		}
	case Alpha:
		return func(b byte, _ int) bool {
			return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
		}
	case Alphanum:
		return func(b byte, _ int) bool {
			return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
		}
	case Filename:
		return func(b byte, _ int) bool {
			return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') ||
				b == '.' || b == '-' || b == '_' || b == '/'
		}
	case URL:
		return func(b byte, _ int) bool {
			switch {
			case (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9'):
				return true
			}
			switch b {
			case '-', '.', '_', '~', ':', '/', '?', '#', '[', ']', '@', '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', '%':
				return true
			}
			return false
		}
	case JSON:
		return func(b byte, _ int) bool { return b >= 0x20 }
	case Command:
		return func(b byte, pos int) bool {
			if pos == 0 && b == '/' {
				return true
			}
			if (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') {
				return true
			}
			switch b {
			case ' ', '_', '-', '.', ',', ':', '/':
				return true
			}
			return false
		}
	case Hex:
		return func(b byte, _ int) bool {
			return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
		}
	case Base64:
		return func(b byte, _ int) bool {
			return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '+' || b == '/' || b == '='
		}
	default:
		return func(byte, int) bool { return false }
	}
}

// Validate scans input against grammar, returning the position and byte of
// the first violation.
func Validate(input []byte, grammar Grammar) Result {
	fn := classFor(grammar)
	for i, b := range input {
		if !fn(b, i) {
			return Result{
				Valid:    false,
				FailPos:  i,
				FailByte: b,
				Reason:   fmt.Sprintf("byte %q at offset %d not in %s grammar", b, i, grammar),
			}
		}
	}
	return Result{Valid: true}
}

// Check is a quick boolean form of Validate.
func Check(input []byte, grammar Grammar) bool {
	return Validate(input, grammar).Valid
}

// Enforce validates input against grammar and logs+wraps a rejection as an
// invalid-input error tagged with context (e.g. "tool-name", "file-path").
func Enforce(log *slog.Logger, input []byte, grammar Grammar, context string) error {
	res := Validate(input, grammar)
	if res.Valid {
		return nil
	}
	if log != nil {
		log.Warn("shield: grammar violation",
			"context", context, "grammar", grammar.String(),
			"fail_pos", res.FailPos, "fail_byte", res.FailByte, "reason", res.Reason)
	}
	return fathomerr.New("shield.Enforce", fathomerr.KindInvalidInput, fmt.Errorf("%s: %s", context, res.Reason))
}
