package mesh

import (
	"fmt"
	"sync"
	"time"

	"github.com/fathomlabs/fathom/internal/fathomerr"
)

// Registry is the Captain's node table: a name-keyed map standing in for
// sea_mesh.c's fixed SeaMeshNode array, guarded the way
// internal/registry.Registry guards its tool table.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	cap   int
}

// NewRegistry builds an empty Registry with capacity MaxNodes.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*Node), cap: MaxNodes}
}

// RegisterNode inserts or updates a node entry. Updating an existing name
// refreshes its endpoint and capability list and marks it healthy; this
// never fails on capacity since it's not a new entry. A genuinely new name
// fails when the registry is at capacity.
func (r *Registry) RegisterNode(name, endpoint string, capabilities []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(capabilities) > MaxCapabilities {
		capabilities = capabilities[:MaxCapabilities]
	}

	if existing, ok := r.nodes[name]; ok {
		existing.Endpoint = endpoint
		existing.Capabilities = capabilities
		existing.Healthy = true
		existing.LastHeartbeat = time.Now()
		return nil
	}

	if len(r.nodes) >= r.cap {
		return fathomerr.New("mesh.RegisterNode", fathomerr.KindFull,
			fmt.Errorf("mesh node registry at capacity %d", r.cap))
	}

	now := time.Now()
	r.nodes[name] = &Node{
		Name:          name,
		Endpoint:      endpoint,
		Capabilities:  capabilities,
		Healthy:       true,
		LastHeartbeat: now,
		RegisteredAt:  now,
	}
	return nil
}

// RemoveNode deletes a node entry outright. Unhealthy nodes are otherwise
// retained (see HealthyNodes) so their counters survive transient outages;
// RemoveNode is the only path that actually forgets a node.
func (r *Registry) RemoveNode(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, name)
}

// ProcessHeartbeat marks name healthy and refreshes its heartbeat clock.
func (r *Registry) ProcessHeartbeat(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[name]
	if !ok {
		return fathomerr.New("mesh.ProcessHeartbeat", fathomerr.KindNotFound,
			fmt.Errorf("no such node: %q", name))
	}
	n.Healthy = true
	n.LastHeartbeat = time.Now()
	return nil
}

// HealthyNodes performs the stale sweep (any node whose last heartbeat is
// older than 3x heartbeatInterval is marked unhealthy) and returns the
// currently healthy set. Unhealthy nodes stay in the registry.
func (r *Registry) HealthyNodes(heartbeatInterval time.Duration) []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	staleBefore := time.Now().Add(-3 * heartbeatInterval)

	var healthy []*Node
	for _, n := range r.nodes {
		if n.LastHeartbeat.Before(staleBefore) {
			n.Healthy = false
		}
		if n.Healthy {
			healthy = append(healthy, n)
		}
	}
	return healthy
}

// RouteTool returns the least-loaded healthy node advertising the given
// tool as a capability, or nil if none qualifies. Ties break by the
// insertion order HealthyNodes' map iteration cannot itself guarantee, so
// RouteTool re-derives a stable order from RegisteredAt.
func (r *Registry) RouteTool(tool string, heartbeatInterval time.Duration) *Node {
	candidates := r.HealthyNodes(heartbeatInterval)

	var best *Node
	for _, n := range candidates {
		if !n.hasCapability(tool) {
			continue
		}
		if best == nil || n.load() < best.load() ||
			(n.load() == best.load() && n.RegisteredAt.Before(best.RegisteredAt)) {
			best = n
		}
	}
	return best
}

// Count returns the number of tracked nodes (healthy and unhealthy).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// RecordOutcome increments a node's completed or failed task counter.
func (r *Registry) RecordOutcome(name string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[name]
	if !ok {
		return
	}
	if success {
		n.TasksCompleted++
	} else {
		n.TasksFailed++
	}
}
