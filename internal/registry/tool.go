// Package registry implements the static-by-default, dynamic-by-append
// tool table and its dispatcher: a closed set of named capabilities the
// Agent Loop and Mesh Coordinator can invoke, looked up in O(1) and
// executed through a single, uniform function shape.
package registry

import (
	"github.com/fathomlabs/fathom/internal/region"
)

// Func is the uniform shape every tool implements: read an argument
// slice, optionally allocate output bytes in r, and return a slice
// pointing into r. Implementations must never retain region pointers
// beyond return.
type Func func(args []byte, r *region.Region) ([]byte, error)

// Descriptor describes one registered tool.
type Descriptor struct {
	ID          uint32
	Name        string
	Description string
	Fn          Func
	// Static marks a descriptor registered before worker start, as
	// opposed to one appended at runtime via the dynamic suffix.
	Static bool
}
