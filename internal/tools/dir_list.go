package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/shield"
)

// NewDirList builds a dir_list tool confined to workspace: args is a
// directory path; output lists entries with type and size, matching
// original_source's tool_dir_list.c presentation.
func NewDirList(workspace string) func(args []byte, r *region.Region) ([]byte, error) {
	return func(args []byte, r *region.Region) ([]byte, error) {
		path := strings.TrimSpace(string(args))
		if path == "" {
			return writeString(r, "Error: no directory path provided")
		}
		if shield.DetectInputInjection([]byte(path)) {
			return writeString(r, "Error: path rejected by Shield")
		}

		resolved, err := shield.CanonicalizePath(path, workspace)
		if err != nil {
			return writeString(r, "Error: path escape detected (symlink or traversal blocked)")
		}

		entries, err := os.ReadDir(resolved)
		if err != nil {
			return writeErrorf(r, "cannot open directory %q", path)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Directory: %s\n", path)
		count := 0
		for _, e := range entries {
			kind := "FILE"
			var size int64
			if info, err := e.Info(); err == nil {
				size = info.Size()
				if e.IsDir() {
					kind = "DIR"
				} else if info.Mode()&os.ModeSymlink != 0 {
					kind = "LINK"
				}
			}
			fmt.Fprintf(&b, "  %-4s %8d  %s\n", kind, size, e.Name())
			count++
		}
		fmt.Fprintf(&b, "(%d entries)", count)

		return writeString(r, b.String())
	}
}
