// Package store is the durable-store contract spec.md §6 names as an
// external boundary, plus its one concrete implementation backed by
// modernc.org/sqlite (pure Go, no cgo). It persists conversation history,
// recall facts, scheduled tasks, audit events, and proxy usage records.
package store

import (
	"context"
	"time"
)

// Message is one turn of a chat's conversation transcript.
type Message struct {
	Role       string // "user", "assistant", or "tool"
	Content    string
	ToolCallID string
	ToolName   string
	CreatedAt  time.Time
}

// RecallCategory classifies a persisted fact.
type RecallCategory string

const (
	RecallUser       RecallCategory = "user"
	RecallPreference RecallCategory = "preference"
	RecallFact       RecallCategory = "fact"
	RecallRule       RecallCategory = "rule"
	RecallContext    RecallCategory = "context"
	RecallIdentity   RecallCategory = "identity"
)

// Fact is a recall-memory entry: a structured, importance-scored note the
// Agent Loop may surface in its memory-context prompt fragment.
type Fact struct {
	ID               string
	Category         RecallCategory
	Content          string
	Importance       int // 1..10
	ScoreWhenReturned float64
}

// TaskStatus tracks a scheduled user task's lifecycle.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is a persisted user task, the structured argument the task_manage
// tool reads and writes.
type Task struct {
	ID          string
	Description string
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UsageRecord is one append-only proxy usage row.
type UsageRecord struct {
	Caller      string
	Provider    string
	Model       string
	TokensIn    int
	TokensOut   int
	Cost        float64
	LatencyMS   int64
	Status      string
	Extra       string
	RecordedAt  time.Time
}

// Store is the durable-store contract consumed by the core, per spec.md
// §6. Every method is safe for concurrent use from multiple workers; the
// implementation is expected to serialize internally.
type Store interface {
	// Conversation transcript.
	AppendMessage(ctx context.Context, chatID string, msg Message) error
	RecentMessages(ctx context.Context, chatID string, limit int) ([]Message, error)

	// Task management.
	TaskList(ctx context.Context, chatID string) ([]Task, error)
	TaskCreate(ctx context.Context, chatID, description string) (Task, error)
	TaskUpdateStatus(ctx context.Context, taskID string, status TaskStatus) error

	// Recall memory.
	RecallStore(ctx context.Context, chatID string, fact Fact) error
	RecallQuery(ctx context.Context, chatID, query string, limit int) ([]Fact, error)
	RecallForget(ctx context.Context, factID string) error

	// Audit trail.
	LogEvent(ctx context.Context, kind, subject, detail string) error

	// Proxy usage.
	LLMLog(ctx context.Context, rec UsageRecord) error
	LLMTotalTokens(ctx context.Context, caller string, day time.Time) (int64, error)

	// Operator-authored identity and notes.
	ReadBootstrap(ctx context.Context, fileName string) (string, error)
	ReadMemory(ctx context.Context, key string) (string, error)
	WriteMemory(ctx context.Context, key, content string) error
	AppendMemory(ctx context.Context, key, content string) error
	AppendDaily(ctx context.Context, day time.Time, content string) error
	ReadDaily(ctx context.Context, day time.Time) (string, error)

	Close() error
}
