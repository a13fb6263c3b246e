package mesh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fathomlabs/fathom/internal/fathomerr"
	"github.com/fathomlabs/fathom/internal/observability"
	"github.com/fathomlabs/fathom/internal/shield"
	"github.com/fathomlabs/fathom/internal/store"
)

// Task is one unit of work the Captain routes to a Crew node.
type Task struct {
	TaskID string
	Tool   string
	Args   string
}

// DispatchResult is the outcome of one Captain-side dispatch.
type DispatchResult struct {
	TaskID    string
	NodeName  string
	Success   bool
	Output    string
	LatencyMS int64
	Error     string
}

// execRequestBody is the wire body sent to POST <endpoint>/node/exec.
type execRequestBody struct {
	TaskID string `json:"task_id"`
	Tool   string `json:"tool"`
	Args   string `json:"args"`
}

type execResponseBody struct {
	Output string `json:"output"`
}

// Captain routes tasks to the least-loaded healthy node advertising the
// required capability and dispatches over HTTP JSON-RPC.
type Captain struct {
	Registry          *Registry
	HTTP              *http.Client
	Store             store.Store
	Log               *slog.Logger
	HeartbeatInterval time.Duration

	// Metrics records dispatch outcomes and healthy-node counts; nil disables it.
	Metrics *observability.Metrics

	// Tokenizer mints the X-Mesh-Token header on every outgoing request to
	// a Crew node. Nil means no header is sent.
	Tokenizer Tokenizer
}

// Dispatch finds the best node for task.Tool and posts the task to its
// /node/exec endpoint. Output is always run through the output-injection
// Shield before being returned; a positive detection rejects it outright.
// Every call emits exactly one audit record, win or lose.
func (c *Captain) Dispatch(ctx context.Context, task Task) DispatchResult {
	if c.Metrics != nil {
		c.Metrics.MeshHealthyNodes.Set(float64(len(c.Registry.HealthyNodes(c.HeartbeatInterval))))
	}

	node := c.Registry.RouteTool(task.Tool, c.HeartbeatInterval)
	if node == nil {
		c.audit(ctx, task.Tool, "", fmt.Sprintf("no node available for tool %q", task.Tool))
		c.recordDispatch(task.Tool, "", false, 0)
		return DispatchResult{TaskID: task.TaskID, Error: "no node available for this tool"}
	}

	body, err := json.Marshal(execRequestBody{TaskID: task.TaskID, Tool: task.Tool, Args: task.Args})
	if err != nil {
		return DispatchResult{TaskID: task.TaskID, NodeName: node.Name, Error: err.Error()}
	}

	url := node.Endpoint + "/node/exec"
	start := time.Now()
	resp, err := c.post(ctx, url, body)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		c.Registry.RecordOutcome(node.Name, false)
		c.audit(ctx, task.Tool, node.Name, fmt.Sprintf("http request failed: %v", err))
		c.logWarn("mesh dispatch failed", "tool", task.Tool, "node", node.Name, "error", err)
		c.recordDispatch(task.Tool, node.Name, false, time.Duration(latency)*time.Millisecond)
		return DispatchResult{TaskID: task.TaskID, NodeName: node.Name, LatencyMS: latency, Error: "HTTP request to node failed"}
	}

	var parsed execResponseBody
	if err := json.Unmarshal(resp, &parsed); err != nil {
		c.Registry.RecordOutcome(node.Name, false)
		c.audit(ctx, task.Tool, node.Name, "response did not parse")
		c.recordDispatch(task.Tool, node.Name, false, time.Duration(latency)*time.Millisecond)
		return DispatchResult{TaskID: task.TaskID, NodeName: node.Name, LatencyMS: latency, Error: "malformed node response"}
	}

	output := parsed.Output
	success := output != ""

	if success && shield.DetectOutputInjection([]byte(output)) {
		c.logWarn("mesh output rejected by shield", "tool", task.Tool, "node", node.Name)
		output = "[Output rejected by Shield]"
		success = false
	}

	c.Registry.RecordOutcome(node.Name, success)
	c.audit(ctx, task.Tool, node.Name, fmt.Sprintf("success=%v latency_ms=%d", success, latency))
	c.recordDispatch(task.Tool, node.Name, success, time.Duration(latency)*time.Millisecond)

	return DispatchResult{TaskID: task.TaskID, NodeName: node.Name, Success: success, Output: output, LatencyMS: latency}
}

func (c *Captain) recordDispatch(tool, node string, success bool, elapsed time.Duration) {
	if c.Metrics == nil {
		return
	}
	status := "ok"
	if !success {
		status = "error"
	}
	c.Metrics.MeshDispatchCounter.WithLabelValues(tool, node, status).Inc()
	c.Metrics.MeshDispatchDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Broadcast sends message to every currently healthy node's /mesh/broadcast
// endpoint, fire-and-forget, and returns how many accepted it.
func (c *Captain) Broadcast(ctx context.Context, message string) int {
	sent := 0
	body, _ := json.Marshal(map[string]string{"message": message})
	for _, n := range c.Registry.HealthyNodes(c.HeartbeatInterval) {
		if _, err := c.post(ctx, n.Endpoint+"/mesh/broadcast", body); err == nil {
			sent++
		}
	}
	return sent
}

func (c *Captain) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Tokenizer != nil {
		tok, err := c.Tokenizer.Generate()
		if err != nil {
			return nil, fmt.Errorf("mesh: minting token: %w", err)
		}
		req.Header.Set("X-Mesh-Token", tok)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fathomerr.New("mesh.Captain.post", fathomerr.KindConnect,
			fmt.Errorf("node returned status %d", resp.StatusCode))
	}
	return out, nil
}

func (c *Captain) audit(ctx context.Context, tool, node, detail string) {
	if c.Store != nil {
		_ = c.Store.LogEvent(ctx, "mesh_dispatch", tool, fmt.Sprintf("node=%s %s", node, detail))
	}
}

func (c *Captain) logWarn(msg string, args ...any) {
	if c.Log != nil {
		c.Log.Warn(msg, args...)
	}
}
