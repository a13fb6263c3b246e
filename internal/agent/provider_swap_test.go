package agent

import (
	"testing"

	"github.com/fathomlabs/fathom/internal/config"
)

func TestSetProviderRederivesDefaultModel(t *testing.T) {
	loop, _ := newTestLoop(t, nil)

	if err := loop.SetProvider(config.ProviderAnthropic); err != nil {
		t.Fatalf("SetProvider: %v", err)
	}

	pc := loop.primaryProvider()
	if pc.Provider != config.ProviderAnthropic {
		t.Fatalf("provider = %q", pc.Provider)
	}
	if pc.Model != "claude-3-5-sonnet-latest" {
		t.Fatalf("model = %q, want provider default", pc.Model)
	}
}

func TestSetModelOverridesWithoutChangingProvider(t *testing.T) {
	loop, _ := newTestLoop(t, nil)
	loop.SetModel("gpt-4o")

	pc := loop.primaryProvider()
	if pc.Provider != config.ProviderOpenAI {
		t.Fatalf("provider changed unexpectedly: %q", pc.Provider)
	}
	if pc.Model != "gpt-4o" {
		t.Fatalf("model = %q", pc.Model)
	}
}

func TestSetProviderRejectsUnknownKind(t *testing.T) {
	loop, _ := newTestLoop(t, nil)
	if err := loop.SetProvider(config.ProviderKind("not-a-provider")); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
