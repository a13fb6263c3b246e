// Package tools implements the closed, statically registered capability
// set the Tool Registry dispatches into, per spec.md §4.4. Each function
// follows the uniform registry.Func shape: read an argument byte slice,
// optionally write output into the caller's region, return a slice.
// Grounded on original_source/src/hands/impl's tool_*.c files — the
// set here is the representative subset SPEC_FULL.md names (echo,
// file_read, file_write, dir_list, shell_exec, http_request, recall,
// task_manage); the other dozens named there are out of scope per
// spec.md §1's stated tool-surface limit.
package tools

import (
	"fmt"

	"github.com/fathomlabs/fathom/internal/region"
)

func writeString(r *region.Region, s string) ([]byte, error) {
	b, err := r.PushBytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("tools: output too large for region: %w", err)
	}
	return b, nil
}

func writeErrorf(r *region.Region, format string, args ...any) ([]byte, error) {
	return writeString(r, "Error: "+fmt.Sprintf(format, args...))
}

func truncate(s string, max int, notice string) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + notice
}
