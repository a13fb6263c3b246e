package tools

import (
	"io"
	"os"
	"strings"

	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/shield"
)

// MaxFileReadBytes caps how much of a file file_read returns, matching
// original_source's tool_file_read.c MAX_READ_SIZE.
const MaxFileReadBytes = 8 * 1024

// NewFileRead builds a file_read tool confined to workspace: args is the
// file path, trimmed of surrounding whitespace and Shield-validated
// against injection and path escape before any I/O happens.
func NewFileRead(workspace string) func(args []byte, r *region.Region) ([]byte, error) {
	return func(args []byte, r *region.Region) ([]byte, error) {
		path := strings.TrimSpace(string(args))
		if path == "" {
			return writeString(r, "Error: no file path provided")
		}
		if shield.DetectInputInjection([]byte(path)) {
			return writeString(r, "Error: path rejected by Shield (injection detected)")
		}

		resolved, err := shield.CanonicalizePath(path, workspace)
		if err != nil {
			return writeString(r, "Error: path escape detected (symlink or traversal blocked)")
		}

		f, err := os.Open(resolved)
		if err != nil {
			return writeErrorf(r, "cannot open %q", path)
		}
		defer f.Close()

		buf := make([]byte, MaxFileReadBytes+1)
		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return writeErrorf(r, "reading %q: %v", path, err)
		}

		content := string(buf[:n])
		if n > MaxFileReadBytes {
			content = string(buf[:MaxFileReadBytes]) + "\n... (truncated at 8KB)"
		}
		return writeString(r, content)
	}
}
