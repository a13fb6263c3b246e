package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/shield"
)

// NewFileWrite builds a file_write tool confined to workspace. Args is
// "path|content" (pipe-separated), matching original_source's
// tool_file_write.c wire shape. Overwrites existing files; creates
// parent directories as needed.
func NewFileWrite(workspace string) func(args []byte, r *region.Region) ([]byte, error) {
	return func(args []byte, r *region.Region) ([]byte, error) {
		raw := string(args)
		if raw == "" {
			return writeString(r, "Error: usage: path|content")
		}

		sep := strings.IndexByte(raw, '|')
		if sep < 0 {
			return writeString(r, "Error: usage: path|content (pipe separator required)")
		}
		path := strings.TrimSpace(raw[:sep])
		content := raw[sep+1:]

		if shield.DetectInputInjection([]byte(path)) {
			return writeString(r, "Error: path rejected by Shield")
		}

		resolved, err := shield.CanonicalizePath(path, workspace)
		if err != nil {
			return writeString(r, "Error: path escape detected (symlink or traversal blocked)")
		}

		if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
			return writeErrorf(r, "cannot create parent directories for %q", path)
		}
		if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
			return writeErrorf(r, "cannot open %q for writing", path)
		}

		return writeString(r, fmt.Sprintf("Wrote %d bytes to '%s'", len(content), path))
	}
}
