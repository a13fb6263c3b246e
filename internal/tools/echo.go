package tools

import (
	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/registry"
)

// Echo returns args unchanged, copied into the caller's region. It exists
// mainly as the minimal tool for exercising the dispatch path end to end.
func Echo(args []byte, r *region.Region) ([]byte, error) {
	return r.PushBytes(args)
}

var _ registry.Func = Echo
