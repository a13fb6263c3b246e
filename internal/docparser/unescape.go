package docparser

import (
	"fmt"
	"unicode/utf8"

	"github.com/fathomlabs/fathom/internal/fathomerr"
	"github.com/fathomlabs/fathom/internal/region"
)

// Unescape processes JSON escape sequences in raw (the bytes between a
// string value's quotes, as returned in Value.Str) and writes the cooked
// text into r. This is always an explicit, separate step from parsing —
// Value.Str itself never holds cooked text, so "string ⊆ source" always
// holds for the parsed tree.
func Unescape(raw []byte, r *region.Region) (string, error) {
	// Fast path: no backslash means the raw bytes are already cooked.
	hasEscape := false
	for _, b := range raw {
		if b == '\\' {
			hasEscape = true
			break
		}
	}
	if !hasEscape {
		return r.PushString(string(raw))
	}

	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b != '\\' {
			out = append(out, b)
			continue
		}
		i++
		if i >= len(raw) {
			return "", fathomerr.New("docparser.Unescape", fathomerr.KindInvalidDocument,
				fmt.Errorf("dangling escape at offset %d", i-1))
		}
		switch raw[i] {
		case '"':
			out = append(out, '"')
		case '\\':
			out = append(out, '\\')
		case '/':
			out = append(out, '/')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'u':
			if i+4 >= len(raw) {
				return "", fathomerr.New("docparser.Unescape", fathomerr.KindInvalidDocument,
					fmt.Errorf("truncated \\u escape at offset %d", i))
			}
			cp, _, err := decodeUnicodeEscape(raw[i+1 : i+5])
			if err != nil {
				return "", fathomerr.New("docparser.Unescape", fathomerr.KindInvalidDocument, err)
			}
			var buf [utf8.UTFMax]byte
			n := utf8.EncodeRune(buf[:], cp)
			out = append(out, buf[:n]...)
			i += 4
		default:
			return "", fathomerr.New("docparser.Unescape", fathomerr.KindInvalidDocument,
				fmt.Errorf("unknown escape \\%c at offset %d", raw[i], i))
		}
	}
	return r.PushString(string(out))
}

func decodeUnicodeEscape(hex []byte) (rune, int, error) {
	var v int32
	for _, c := range hex {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= int32(c - '0')
		case c >= 'a' && c <= 'f':
			v |= int32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= int32(c-'A') + 10
		default:
			return 0, 0, fmt.Errorf("invalid hex digit %q", c)
		}
	}
	return rune(v), 4, nil
}

