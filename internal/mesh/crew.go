package mesh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fathomlabs/fathom/internal/registry"
)

type registerBody struct {
	Name         string   `json:"name"`
	Endpoint     string   `json:"endpoint"`
	Capabilities []string `json:"capabilities"`
}

type heartbeatBody struct {
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

// Crew is one worker node: it registers and heartbeats with a Captain, and
// executes tasks the Captain dispatches to it via the local tool
// dispatcher.
type Crew struct {
	Name         string
	SelfEndpoint string
	CaptainURL   string
	Capabilities []string
	HTTP         *http.Client
	Dispatcher   *registry.Dispatcher

	// Tokenizer mints the X-Mesh-Token header on every outgoing request to
	// the Captain. Nil means no header is sent (matches an empty-secret
	// FNVTokenizer's "no secret = open" behavior only if the Captain is
	// configured the same way).
	Tokenizer Tokenizer
}

// Register posts this node's identity and capability list to the Captain.
func (c *Crew) Register(ctx context.Context) error {
	body, err := json.Marshal(registerBody{Name: c.Name, Endpoint: c.SelfEndpoint, Capabilities: c.Capabilities})
	if err != nil {
		return err
	}
	return c.post(ctx, c.CaptainURL+"/mesh/register", body)
}

// Heartbeat posts {name, timestamp} to the Captain.
func (c *Crew) Heartbeat(ctx context.Context) error {
	body, err := json.Marshal(heartbeatBody{Name: c.Name, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	return c.post(ctx, c.CaptainURL+"/mesh/heartbeat", body)
}

func (c *Crew) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Tokenizer != nil {
		tok, err := c.Tokenizer.Generate()
		if err != nil {
			return fmt.Errorf("mesh: minting token: %w", err)
		}
		req.Header.Set("X-Mesh-Token", tok)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mesh: captain returned status %d", resp.StatusCode)
	}
	return nil
}
