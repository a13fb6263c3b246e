package tools

import (
	"strings"
	"testing"

	"github.com/fathomlabs/fathom/internal/region"
)

func TestShellExecRunsCommandAndCapturesOutput(t *testing.T) {
	exec := NewShellExec()
	r := region.New(4096)
	out, err := exec([]byte("echo hi"), r)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "hi") || !strings.Contains(s, "[exit: 0]") {
		t.Fatalf("out = %q", s)
	}
}

func TestShellExecReportsNonZeroExit(t *testing.T) {
	exec := NewShellExec()
	r := region.New(4096)
	out, err := exec([]byte("exit 7"), r)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !strings.Contains(string(out), "[exit: 7]") {
		t.Fatalf("out = %q", out)
	}
}

func TestShellExecBlocksDangerousCommand(t *testing.T) {
	exec := NewShellExec()
	r := region.New(1024)
	out, err := exec([]byte("rm -rf /"), r)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !strings.Contains(string(out), "blocked") {
		t.Fatalf("out = %q", out)
	}
}

func TestShellExecRejectsEmptyCommand(t *testing.T) {
	exec := NewShellExec()
	r := region.New(1024)
	out, err := exec([]byte(""), r)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !strings.Contains(string(out), "no command provided") {
		t.Fatalf("out = %q", out)
	}
}
