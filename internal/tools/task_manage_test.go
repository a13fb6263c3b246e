package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/store"
)

func TestTaskManageCreateThenList(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	manage := NewTaskManage(st, "chat-1")
	r := region.New(4096)

	out, err := manage([]byte(`{"action":"create","description":"buy milk"}`), r)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(string(out), "Task created") {
		t.Fatalf("out = %q", out)
	}

	out, err = manage([]byte(`{"action":"list"}`), r)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(string(out), "buy milk") || !strings.Contains(string(out), "pending") {
		t.Fatalf("out = %q", out)
	}
}

func TestTaskManageDoneMarksCompleted(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	manage := NewTaskManage(st, "chat-1")
	r := region.New(4096)

	created, err := st.TaskCreate(context.Background(), "chat-1", "wash car")
	if err != nil {
		t.Fatalf("TaskCreate: %v", err)
	}

	out, err := manage([]byte(`{"action":"done","task_id":"`+created.ID+`"}`), r)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if !strings.Contains(string(out), "marked as completed") {
		t.Fatalf("out = %q", out)
	}

	out, err = manage([]byte(`{"action":"list"}`), r)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(string(out), "completed") {
		t.Fatalf("out = %q", out)
	}
}

func TestTaskManageRejectsInvalidSchema(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	manage := NewTaskManage(st, "chat-1")
	r := region.New(1024)

	out, err := manage([]byte(`{"action":"create"}`), r)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(string(out), "invalid task_manage args") {
		t.Fatalf("out = %q", out)
	}
}

func TestTaskManageRejectsNonJSONArgs(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	manage := NewTaskManage(st, "chat-1")
	r := region.New(1024)

	out, err := manage([]byte(`list`), r)
	if err != nil {
		t.Fatalf("manage: %v", err)
	}
	if !strings.Contains(string(out), "must be a JSON object") {
		t.Fatalf("out = %q", out)
	}
}
