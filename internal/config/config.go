// Package config defines the runtime's configuration surface and loads it
// from a single YAML or JSON5 document at startup, in the style of
// haasonsaas/nexus's internal/config/loader.go.
package config

import "time"

// ProviderKind enumerates the supported LLM providers. Every kind shares
// the OpenAI chat-completions wire shape; only the endpoint default, model
// default, and auth header shape differ per provider (see
// internal/providers).
type ProviderKind string

const (
	ProviderOpenAI     ProviderKind = "openai"
	ProviderAnthropic  ProviderKind = "anthropic"
	ProviderGemini     ProviderKind = "gemini"
	ProviderOpenRouter ProviderKind = "openrouter"
	ProviderLocal      ProviderKind = "local"
	ProviderZAI        ProviderKind = "zai"
)

// ThinkLevel pins (temperature, max_tokens) to a documented pair.
type ThinkLevel string

const (
	ThinkOff    ThinkLevel = "off"
	ThinkLow    ThinkLevel = "low"
	ThinkMedium ThinkLevel = "medium"
	ThinkHigh   ThinkLevel = "high"
)

// ProviderConfig is one entry of the provider fallback chain.
type ProviderConfig struct {
	Provider ProviderKind `yaml:"provider" json:"provider"`
	APIURL   string       `yaml:"api_url" json:"api_url"`
	APIKey   string       `yaml:"api_key" json:"api_key"`
	Model    string       `yaml:"model" json:"model"`
}

// MeshConfig configures the Mesh Coordinator's role for this process.
type MeshConfig struct {
	Role              string        `yaml:"role" json:"role"` // "captain", "crew", or "" (disabled)
	ListenAddr        string        `yaml:"listen_addr" json:"listen_addr"`
	CaptainURL        string        `yaml:"captain_url" json:"captain_url"`
	SelfEndpoint      string        `yaml:"self_endpoint" json:"self_endpoint"`
	Capabilities      []string      `yaml:"capabilities" json:"capabilities"`
	SharedSecret      string        `yaml:"shared_secret" json:"shared_secret"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" json:"heartbeat_interval"`
	// DiscoveryURL, if set, is polled once at captain startup for a JSON
	// array of peer descriptors to seed the node table alongside whatever
	// registers itself via /mesh/register afterward.
	DiscoveryURL string `yaml:"discovery_url" json:"discovery_url"`
	// TokenMode selects the mesh Tokenizer: "fnv" (default, LAN-trust) or
	// "jwt" (the deliberate cryptographic upgrade SPEC_FULL.md names).
	TokenMode string `yaml:"token_mode" json:"token_mode"`
}

// ProxyConfig configures the loopback LLM Proxy.
type ProxyConfig struct {
	ListenAddr       string `yaml:"listen_addr" json:"listen_addr"`
	InternalToken    string `yaml:"internal_token" json:"internal_token"`
	DailyTokenBudget int64  `yaml:"daily_token_budget" json:"daily_token_budget"`
	ServiceName      string `yaml:"service_name" json:"service_name"`
}

// Config is the full recognized configuration surface, sourced from a
// single document file at startup.
type Config struct {
	TelegramToken  string `yaml:"telegram_token" json:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id" json:"telegram_chat_id"`

	DBPath      string `yaml:"db_path" json:"db_path"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
	ArenaSizeMB int    `yaml:"arena_size_mb" json:"arena_size_mb"`

	// Workspace is the declared root the file_read/file_write/dir_list
	// tools confine themselves to, per spec.md §3's path canonicalizer.
	Workspace string `yaml:"workspace" json:"workspace"`

	LLMProvider ProviderKind `yaml:"llm_provider" json:"llm_provider"`
	LLMAPIKey   string       `yaml:"llm_api_key" json:"llm_api_key"`
	LLMAPIURL   string       `yaml:"llm_api_url" json:"llm_api_url"`
	LLMModel    string       `yaml:"llm_model" json:"llm_model"`

	// LLMFallbacks holds up to 4 additional {provider,api_url,api_key,model}
	// entries tried in order after LLMProvider fails.
	LLMFallbacks []ProviderConfig `yaml:"llm_fallbacks" json:"llm_fallbacks"`

	MaxTokens     int        `yaml:"max_tokens" json:"max_tokens"`
	Temperature   float64    `yaml:"temperature" json:"temperature"`
	MaxToolRounds int        `yaml:"max_tool_rounds" json:"max_tool_rounds"`
	ThinkLevel    ThinkLevel `yaml:"think_level" json:"think_level"`

	Mesh  MeshConfig  `yaml:"mesh" json:"mesh"`
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`
}

// MaxFallbacks is the hard cap on LLMFallbacks entries.
const MaxFallbacks = 4

// ThinkLevelPins maps each ThinkLevel to its pinned (temperature,
// max_tokens) pair, grounded on original_source's sea_agent_set_think_level.
var ThinkLevelPins = map[ThinkLevel]struct {
	Temperature float64
	MaxTokens   int
}{
	ThinkOff:    {Temperature: 0.3, MaxTokens: 1024},
	ThinkLow:    {Temperature: 0.5, MaxTokens: 2048},
	ThinkMedium: {Temperature: 0.7, MaxTokens: 4096},
	ThinkHigh:   {Temperature: 0.9, MaxTokens: 8192},
}

// Defaults returns a Config with the runtime's documented defaults applied.
func Defaults() Config {
	return Config{
		LogLevel:      "info",
		ArenaSizeMB:   16,
		Workspace:     ".",
		MaxTokens:     4096,
		Temperature:   0.7,
		MaxToolRounds: 5,
		ThinkLevel:    ThinkMedium,
		Proxy: ProxyConfig{
			ListenAddr:  "127.0.0.1:7432",
			ServiceName: "fathom-proxy",
		},
		Mesh: MeshConfig{
			HeartbeatInterval: 30 * time.Second,
			TokenMode:         "fnv",
		},
	}
}
