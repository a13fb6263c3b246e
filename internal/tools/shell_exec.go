package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/shield"
)

// MaxShellOutputBytes caps captured stdout+stderr, matching
// original_source's tool_shell_exec.c MAX_OUTPUT_SIZE.
const MaxShellOutputBytes = 8 * 1024

// ShellExecTimeout bounds how long a command may run.
const ShellExecTimeout = 30 * time.Second

// safeEnv is the only environment passed to spawned commands, matching
// original_source's s_safe_env allowlist.
var safeEnv = []string{
	"PATH=/usr/bin:/bin:/usr/local/bin",
	"HOME=/tmp",
	"TERM=xterm",
	"LANG=C.UTF-8",
}

var dangerousSubstrings = []string{
	"rm -rf /", "mkfs", "dd if=", ":(){", "fork bomb",
	"chmod -R 777 /", "shutdown", "reboot", "halt",
	"passwd", "useradd", "userdel", "visudo",
}

func isDangerousCommand(cmd string) bool {
	for _, pattern := range dangerousSubstrings {
		if strings.Contains(cmd, pattern) {
			return true
		}
	}
	return false
}

// NewShellExec builds a shell_exec tool. Args is the command string,
// executed via /bin/sh -c in a restricted environment. Shield rejects
// injection patterns first; a static blocklist then rejects a short list
// of destructive commands even if Shield's grammar missed them.
func NewShellExec() func(args []byte, r *region.Region) ([]byte, error) {
	return func(args []byte, r *region.Region) ([]byte, error) {
		cmd := strings.TrimSpace(string(args))
		if cmd == "" {
			return writeString(r, "Error: no command provided")
		}
		if shield.DetectInputInjection([]byte(cmd)) {
			return writeString(r, "Error: command rejected by Shield (injection pattern)")
		}
		if isDangerousCommand(cmd) {
			return writeString(r, "Error: command blocked (dangerous operation)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), ShellExecTimeout)
		defer cancel()

		c := exec.CommandContext(ctx, "/bin/sh", "-c", cmd)
		c.Env = safeEnv

		var out bytes.Buffer
		c.Stdout = &out
		c.Stderr = &out
		runErr := c.Run()

		output := truncate(out.String(), MaxShellOutputBytes, "\n... (truncated at 8KB)")
		exitCode := 0
		if runErr != nil {
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		return writeString(r, fmt.Sprintf("%s\n[exit: %d]", output, exitCode))
	}
}
