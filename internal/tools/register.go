package tools

import (
	"fmt"
	"net/http"

	"github.com/fathomlabs/fathom/internal/registry"
	"github.com/fathomlabs/fathom/internal/store"
)

// Deps bundles what the registered tools need beyond their raw args.
type Deps struct {
	Workspace string
	Store     store.Store
	ChatID    string
	HTTP      *http.Client
}

// RegisterAll registers every tool this package implements into reg,
// each marked static since they are all compile-time-known per spec.md
// §4.4. Returns the first registration error encountered, if any.
func RegisterAll(reg *registry.Registry, deps Deps) error {
	entries := []struct {
		name string
		desc string
		fn   registry.Func
	}{
		{"echo", "echoes its argument back unchanged", Echo},
		{"file_read", "reads a file under the configured workspace (max 8KB)", NewFileRead(deps.Workspace)},
		{"file_write", "writes content to a file under the configured workspace", NewFileWrite(deps.Workspace)},
		{"dir_list", "lists a directory under the configured workspace", NewDirList(deps.Workspace)},
		{"shell_exec", "runs a shell command in a restricted environment (max 8KB output)", NewShellExec()},
		{"http_request", "issues a GET/POST/HEAD request to a public URL", NewHTTPRequest(deps.HTTP)},
		{"recall", "queries or stores recall-memory facts", NewRecall(deps.Store, deps.ChatID)},
		{"task_manage", "lists, creates, or completes tasks", NewTaskManage(deps.Store, deps.ChatID)},
	}

	for _, e := range entries {
		if _, err := reg.Register(e.name, e.desc, true, e.fn); err != nil {
			return fmt.Errorf("tools.RegisterAll: registering %q: %w", e.name, err)
		}
	}
	return nil
}
