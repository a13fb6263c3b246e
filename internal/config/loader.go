package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/fathomlabs/fathom/internal/fathomerr"
)

const op = "config.Load"

// Load reads the configuration document at path, expands ${VAR}-style
// environment references the way haasonsaas/nexus's loader does, decodes
// it as YAML or JSON5 depending on extension, and overlays it onto
// Defaults(). Strict decoding is used so a typo'd key is a config error,
// not a silently ignored field.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Config{}, fathomerr.New(op, fathomerr.KindConfig, fmt.Errorf("config path is required"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fathomerr.New(op, fathomerr.KindConfig, err)
	}
	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := decode(expanded, path, &cfg); err != nil {
		return Config{}, fathomerr.New(op, fathomerr.KindConfig, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, fathomerr.New(op, fathomerr.KindConfig, err)
	}
	return cfg, nil
}

func decode(expanded, path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		return json5.Unmarshal([]byte(expanded), cfg)
	default:
		dec := yaml.NewDecoder(strings.NewReader(expanded))
		dec.KnownFields(true)
		return dec.Decode(cfg)
	}
}

// Validate checks the recognized invariants of the config surface: a
// non-empty db_path, a non-empty llm_provider, at most MaxFallbacks
// fallback providers, and a recognized think_level when one is set.
func Validate(cfg Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if cfg.LLMProvider == "" {
		return fmt.Errorf("llm_provider is required")
	}
	if len(cfg.LLMFallbacks) > MaxFallbacks {
		return fmt.Errorf("llm_fallbacks has %d entries, max %d", len(cfg.LLMFallbacks), MaxFallbacks)
	}
	if _, ok := ThinkLevelPins[cfg.ThinkLevel]; cfg.ThinkLevel != "" && !ok {
		return fmt.Errorf("unrecognized think_level %q", cfg.ThinkLevel)
	}
	return nil
}
