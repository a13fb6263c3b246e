package providers

import (
	"context"
	"fmt"

	"github.com/fathomlabs/fathom/internal/config"
	"github.com/fathomlabs/fathom/internal/fathomerr"
)

// Attempt is one entry in a fallback chain: the primary provider config
// followed by up to config.MaxFallbacks alternates, tried in order.
type Attempt struct {
	Config config.ProviderConfig
}

// ChainResult carries the response along with which provider actually
// served it, so callers can log/attribute usage correctly.
type ChainResult struct {
	Response Response
	Provider config.ProviderKind
	Model    string
}

// CallChain tries primary then each of fallbacks in order, advancing to the
// next entry on any non-success. Per spec.md §7's propagation policy: if
// every entry fails, the Agent Loop sees a single error whose message names
// the last provider tried, not an aggregate of every failure.
func CallChain(ctx context.Context, client HTTPDoer, primary config.ProviderConfig, fallbacks []config.ProviderConfig, req Request) (ChainResult, error) {
	chain := make([]config.ProviderConfig, 0, 1+len(fallbacks))
	chain = append(chain, primary)
	chain = append(chain, fallbacks...)
	if len(fallbacks) > config.MaxFallbacks {
		chain = chain[:1+config.MaxFallbacks]
	}

	var lastErr error
	var lastKind config.ProviderKind
	for _, pc := range chain {
		spec, url, model, err := Resolve(pc)
		if err != nil {
			lastErr = err
			lastKind = pc.Provider
			continue
		}
		callReq := req
		callReq.Model = model

		resp, err := Call(ctx, client, spec, url, pc.APIKey, callReq)
		if err == nil {
			return ChainResult{Response: resp, Provider: pc.Provider, Model: model}, nil
		}
		lastErr = err
		lastKind = pc.Provider

		if ctx.Err() != nil {
			break
		}
	}
	return ChainResult{}, fathomerr.New("providers.CallChain", fathomerr.KindOf(lastErr),
		fmt.Errorf("all providers failed, last tried %s: %w", lastKind, lastErr))
}
