package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// peerDescriptor is one entry in a discovery URL's response body.
type peerDescriptor struct {
	Name         string   `json:"name"`
	Endpoint     string   `json:"endpoint"`
	Capabilities []string `json:"capabilities"`
}

// DiscoverPeers fetches a JSON array of peer descriptors from url and
// registers each directly into reg, skipping any entry missing a name or
// endpoint. It returns how many peers were registered. Registration still
// works without this; discovery is strictly an additional way to seed the
// Captain's node table alongside explicit /mesh/register calls.
func DiscoverPeers(ctx context.Context, httpClient *http.Client, reg *Registry, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("mesh.DiscoverPeers: building request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("mesh.DiscoverPeers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("mesh.DiscoverPeers: discovery endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("mesh.DiscoverPeers: reading response: %w", err)
	}

	var peers []peerDescriptor
	if err := json.Unmarshal(body, &peers); err != nil {
		return 0, fmt.Errorf("mesh.DiscoverPeers: malformed response: %w", err)
	}

	registered := 0
	for _, p := range peers {
		if p.Name == "" || p.Endpoint == "" {
			continue
		}
		if err := reg.RegisterNode(p.Name, p.Endpoint, p.Capabilities); err != nil {
			continue
		}
		registered++
	}
	return registered, nil
}
