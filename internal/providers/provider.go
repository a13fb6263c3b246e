// Package providers abstracts the remote LLM endpoints behind a single
// request/response/stream contract. Per spec.md §4.6 and §9's "Provider
// shape normalization" design note, every configured provider — including
// the Anthropic-compatible one — is addressed with the identical OpenAI
// chat-completions wire body; only the endpoint default, model default,
// and authentication-header shape vary. This is a documented soft spot in
// the source, preserved deliberately rather than "fixed" into distinct
// per-vendor wire formats.
package providers

import "github.com/fathomlabs/fathom/internal/config"

// AuthShape names how a provider expects its API key presented.
type AuthShape int

const (
	AuthBearer AuthShape = iota // Authorization: Bearer <key>
	AuthAPIKeyHeader            // x-api-key: <key>
	AuthNone
)

// Spec is the per-provider strategy record spec.md §9 calls for: default
// endpoint, default model, and auth header shape. Adding a provider is
// adding one Spec.
type Spec struct {
	Kind          config.ProviderKind
	DefaultURL    string
	DefaultModel  string
	Auth          AuthShape
}

// Registry of built-in provider strategies.
var registry = map[config.ProviderKind]Spec{
	config.ProviderOpenAI: {
		Kind: config.ProviderOpenAI, DefaultURL: "https://api.openai.com/v1/chat/completions",
		DefaultModel: "gpt-4o-mini", Auth: AuthBearer,
	},
	config.ProviderAnthropic: {
		Kind: config.ProviderAnthropic, DefaultURL: "https://api.anthropic.com/v1/chat/completions",
		DefaultModel: "claude-3-5-sonnet-latest", Auth: AuthAPIKeyHeader,
	},
	config.ProviderGemini: {
		Kind: config.ProviderGemini, DefaultURL: "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions",
		DefaultModel: "gemini-1.5-flash", Auth: AuthBearer,
	},
	config.ProviderOpenRouter: {
		Kind: config.ProviderOpenRouter, DefaultURL: "https://openrouter.ai/api/v1/chat/completions",
		DefaultModel: "openrouter/auto", Auth: AuthBearer,
	},
	config.ProviderLocal: {
		Kind: config.ProviderLocal, DefaultURL: "http://127.0.0.1:11434/v1/chat/completions",
		DefaultModel: "llama3", Auth: AuthNone,
	},
	config.ProviderZAI: {
		Kind: config.ProviderZAI, DefaultURL: "https://api.z.ai/v1/chat/completions",
		DefaultModel: "glm-4", Auth: AuthBearer,
	},
}

// Lookup returns the Spec for kind, or false if the kind is unrecognized.
func Lookup(kind config.ProviderKind) (Spec, bool) {
	s, ok := registry[kind]
	return s, ok
}

// Resolve merges a ProviderConfig over its Spec defaults: an empty
// APIURL/Model falls back to the provider's documented default.
func Resolve(pc config.ProviderConfig) (Spec, string, string, error) {
	spec, ok := Lookup(pc.Provider)
	if !ok {
		return Spec{}, "", "", &unknownProviderError{kind: pc.Provider}
	}
	url := pc.APIURL
	if url == "" {
		url = spec.DefaultURL
	}
	model := pc.Model
	if model == "" {
		model = spec.DefaultModel
	}
	return spec, url, model, nil
}

type unknownProviderError struct{ kind config.ProviderKind }

func (e *unknownProviderError) Error() string {
	return "providers: unrecognized provider kind " + string(e.kind)
}

// AuthHeader returns the (header-name, header-value) pair to set for the
// given auth shape and API key. AuthNone returns ("", "").
func AuthHeader(shape AuthShape, apiKey string) (name, value string) {
	switch shape {
	case AuthBearer:
		return "Authorization", "Bearer " + apiKey
	case AuthAPIKeyHeader:
		return "x-api-key", apiKey
	default:
		return "", ""
	}
}
