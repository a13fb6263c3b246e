package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fathom.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	path := writeTempConfig(t, `
db_path: /var/lib/fathom/fathom.db
llm_provider: openai
llm_api_key: ${TEST_FATHOM_KEY}
log_level: debug
`)
	os.Setenv("TEST_FATHOM_KEY", "sk-test-123")
	defer os.Unsetenv("TEST_FATHOM_KEY")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLMAPIKey != "sk-test-123" {
		t.Fatalf("LLMAPIKey = %q, want env-expanded value", cfg.LLMAPIKey)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want override", cfg.LogLevel)
	}
	if cfg.MaxToolRounds != 5 {
		t.Fatalf("MaxToolRounds = %d, want default 5", cfg.MaxToolRounds)
	}
}

func TestLoadRejectsMissingDBPath(t *testing.T) {
	path := writeTempConfig(t, `llm_provider: openai`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing db_path")
	}
}

func TestLoadRejectsTooManyFallbacks(t *testing.T) {
	path := writeTempConfig(t, `
db_path: /tmp/fathom.db
llm_provider: openai
llm_fallbacks:
  - provider: anthropic
    model: m1
  - provider: gemini
    model: m2
  - provider: openrouter
    model: m3
  - provider: local
    model: m4
  - provider: zai
    model: m5
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for more than %d fallbacks", MaxFallbacks)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeTempConfig(t, `
db_path: /tmp/fathom.db
llm_provider: openai
totally_unknown_field: true
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected strict decode to reject unknown field")
	}
}
