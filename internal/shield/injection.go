package shield

import (
	"bytes"
	"strings"
)

// inputInjectionMarkers are shell-control sequences the strict, input-side
// detector blocks before any tool that touches the OS. This is a blocklist,
// not an allow-set: the original source never specified an exhaustive
// shell-injection grammar, and this preserves that (documented) behavior
// rather than guessing a stricter one.
var inputInjectionMarkers = []string{
	"|", "&", ";", "`", "$(", "${",
	">", "<", "\n&&", "&&", "||",
	"\nrm ", "\nsudo ", "\ncurl ", "\nwget ",
}

// DetectInputInjection reports whether input looks like a shell-injection
// attempt. Strict mode: used before any tool that reaches the OS.
func DetectInputInjection(input []byte) bool {
	s := string(input)
	for _, marker := range inputInjectionMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// outputInjectionMarkers are patterns that would steer a downstream
// consumer of model (or remote-agent) output: prompt-injection markers,
// HTML/script tags, and known exfiltration shapes. Shell metacharacters
// are deliberately NOT checked here — legitimate model output routinely
// contains them (code blocks, examples) and this predicate is relaxed by
// design, unlike DetectInputInjection.
var outputInjectionMarkers = []string{
	"<script", "</script", "<iframe", "javascript:", "onerror=", "onload=",
	"ignore previous instructions", "ignore all previous instructions",
	"disregard the above", "new instructions:", "system prompt:",
	"reveal your instructions", "exfiltrate",
}

// DetectOutputInjection reports whether output contains a prompt-injection
// marker, HTML/script tag, or known exfiltration shape. Relaxed mode: used
// on model or remote-agent output before it crosses back out of the
// runtime.
func DetectOutputInjection(output []byte) bool {
	lower := bytes.ToLower(output)
	for _, marker := range outputInjectionMarkers {
		if bytes.Contains(lower, []byte(marker)) {
			return true
		}
	}
	return false
}

// RefusalText is substituted for model output that fails
// DetectOutputInjection. Mesh dispatch substitutes its own rejection
// string instead.
const RefusalText = "Error: response withheld by output safety filter."
