// Package mesh implements the capability-routed distributed mesh spec.md
// §4.7 names: a Captain role hosting a node registry and dispatching tool
// invocations to healthy Crew nodes over HTTP-JSON, and a Crew role that
// registers and heartbeats with a Captain and executes dispatched tasks
// locally. Grounded on original_source/src/mesh/sea_mesh.c, translated
// from its fixed-array C registry into a Go map guarded by sync.RWMutex,
// in the idiom internal/registry.Registry already establishes.
package mesh

import "time"

// MaxNodes is the registry capacity, mirroring SEA_MESH_MAX_NODES.
const MaxNodes = 256

// MaxCapabilities bounds how many capability names one node may advertise,
// mirroring SEA_MESH_MAX_CAPABILITIES.
const MaxCapabilities = 64

// Node is one registered Crew member as tracked by the Captain.
type Node struct {
	Name           string
	Endpoint       string
	Capabilities   []string
	Healthy        bool
	LastHeartbeat  time.Time
	RegisteredAt   time.Time
	TasksCompleted uint32
	TasksFailed    uint32
}

func (n *Node) load() uint32 { return n.TasksCompleted + n.TasksFailed }

func (n *Node) hasCapability(tool string) bool {
	for _, c := range n.Capabilities {
		if c == tool {
			return true
		}
	}
	return false
}
