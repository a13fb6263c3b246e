package shield

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fathomlabs/fathom/internal/fathomerr"
)

const opCanonicalize = "shield.CanonicalizePath"

// CanonicalizePath resolves path (relative to workspace if not absolute),
// expanding every symlink link-by-link, and succeeds only if the resolved
// absolute path has the resolved absolute workspace as a byte-prefix. This
// rejects any ".." traversal or symlink chain that would, after
// resolution, escape the declared workspace root.
func CanonicalizePath(path, workspace string) (string, error) {
	absWorkspace, err := filepath.Abs(workspace)
	if err != nil {
		return "", fathomerr.New(opCanonicalize, fathomerr.KindInvalidInput, err)
	}
	resolvedWorkspace, err := resolveAllSymlinks(absWorkspace)
	if err != nil {
		return "", fathomerr.New(opCanonicalize, fathomerr.KindInvalidInput, err)
	}

	var candidate string
	if filepath.IsAbs(path) {
		candidate = path
	} else {
		candidate = filepath.Join(absWorkspace, path)
	}

	resolved, err := resolveAllSymlinks(candidate)
	if err != nil {
		return "", fathomerr.New(opCanonicalize, fathomerr.KindInvalidInput, err)
	}

	if resolved != resolvedWorkspace && !strings.HasPrefix(resolved, resolvedWorkspace+string(filepath.Separator)) {
		return "", fathomerr.New(opCanonicalize, fathomerr.KindInvalidInput,
			fmt.Errorf("path %q resolves to %q, outside workspace %q", path, resolved, resolvedWorkspace))
	}
	return resolved, nil
}

// resolveAllSymlinks resolves symlinks component-by-component so that a
// path whose final component does not yet exist (e.g. a file about to be
// created) still has every existing ancestor directory's symlinks
// resolved, matching filepath.EvalSymlinks semantics but tolerating a
// non-existent leaf.
func resolveAllSymlinks(path string) (string, error) {
	clean := filepath.Clean(path)
	if resolved, err := filepath.EvalSymlinks(clean); err == nil {
		return resolved, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	parent, leaf := filepath.Split(clean)
	parent = filepath.Clean(parent)
	if parent == clean {
		// Reached the root without resolving; nothing left to walk.
		return clean, nil
	}
	resolvedParent, err := resolveAllSymlinks(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, leaf), nil
}
