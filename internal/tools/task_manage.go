package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fathomlabs/fathom/internal/region"
	"github.com/fathomlabs/fathom/internal/store"
)

// taskManageSchema is the structured-argument contract for task_manage.
// Unlike every other tool here, task_manage's args string is itself a
// small JSON document rather than free text — a deliberate redesign from
// original_source's pipe-delimited "create|title|desc" wire shape, since
// a model-authored JSON object is exactly what jsonschema is for.
const taskManageSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string", "enum": ["list", "create", "done"]},
    "description": {"type": "string"},
    "task_id": {"type": "string"}
  },
  "if": {"properties": {"action": {"const": "create"}}},
  "then": {"required": ["action", "description"]},
  "else": {
    "if": {"properties": {"action": {"const": "done"}}},
    "then": {"required": ["action", "task_id"]}
  }
}`

var compiledTaskManageSchema = mustCompileTaskManageSchema()

func mustCompileTaskManageSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("task_manage.json", strings.NewReader(taskManageSchema)); err != nil {
		panic(fmt.Sprintf("tools: invalid task_manage schema: %v", err))
	}
	schema, err := compiler.Compile("task_manage.json")
	if err != nil {
		panic(fmt.Sprintf("tools: compiling task_manage schema: %v", err))
	}
	return schema
}

type taskManageArgs struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	TaskID      string `json:"task_id"`
}

// NewTaskManage builds a task_manage tool bound to a store and chat id.
// Args is a JSON object: {"action":"list"}, {"action":"create",
// "description":"..."}, or {"action":"done","task_id":"..."}.
func NewTaskManage(st store.Store, chatID string) func(args []byte, r *region.Region) ([]byte, error) {
	return func(args []byte, r *region.Region) ([]byte, error) {
		ctx := context.Background()

		var v any
		if err := json.Unmarshal(args, &v); err != nil {
			return writeString(r, "Error: args must be a JSON object, e.g. {\"action\":\"list\"}")
		}
		if err := compiledTaskManageSchema.Validate(v); err != nil {
			return writeErrorf(r, "invalid task_manage args: %v", err)
		}

		var parsed taskManageArgs
		if err := json.Unmarshal(args, &parsed); err != nil {
			return writeErrorf(r, "decoding task_manage args: %v", err)
		}

		switch parsed.Action {
		case "list":
			return taskManageList(ctx, st, chatID, r)
		case "create":
			return taskManageCreate(ctx, st, chatID, parsed.Description, r)
		case "done":
			return taskManageDone(ctx, st, parsed.TaskID, r)
		default:
			return writeString(r, "Unknown action. Usage: list | create | done")
		}
	}
}

func taskManageList(ctx context.Context, st store.Store, chatID string, r *region.Region) ([]byte, error) {
	tasks, err := st.TaskList(ctx, chatID)
	if err != nil {
		return writeErrorf(r, "listing tasks: %v", err)
	}
	if len(tasks) == 0 {
		return writeString(r, "No tasks found.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tasks (%d):\n", len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(&b, "  #%s [%s] %s\n", t.ID, t.Status, t.Description)
	}
	return writeString(r, b.String())
}

func taskManageCreate(ctx context.Context, st store.Store, chatID, description string, r *region.Region) ([]byte, error) {
	t, err := st.TaskCreate(ctx, chatID, description)
	if err != nil {
		return writeErrorf(r, "creating task: %v", err)
	}
	return writeString(r, fmt.Sprintf("Task created: #%s '%s'", t.ID, t.Description))
}

func taskManageDone(ctx context.Context, st store.Store, taskID string, r *region.Region) ([]byte, error) {
	if err := st.TaskUpdateStatus(ctx, taskID, store.TaskCompleted); err != nil {
		return writeErrorf(r, "updating task %q: %v", taskID, err)
	}
	return writeString(r, fmt.Sprintf("Task %s marked as completed", taskID))
}
