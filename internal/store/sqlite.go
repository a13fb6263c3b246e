package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/fathomlabs/fathom/internal/fathomerr"
)

const opStore = "store.SQLite"

// SQLite implements Store over a single modernc.org/sqlite database file.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// Open opens (creating if absent) the SQLite database at path and applies
// the schema migrations.
func Open(path string) (*SQLite, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	db.SetMaxOpenConns(1) // sqlite write-serialization; the store contract is internally serialized.
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_call_id TEXT,
			tool_name TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recall_facts (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			category TEXT NOT NULL,
			content TEXT NOT NULL,
			importance INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recall_chat ON recall_facts(chat_id)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			subject TEXT NOT NULL,
			detail TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS llm_usage (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			caller TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			tokens_in INTEGER NOT NULL,
			tokens_out INTEGER NOT NULL,
			cost REAL NOT NULL,
			latency_ms INTEGER NOT NULL,
			status TEXT NOT NULL,
			extra TEXT,
			recorded_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_caller_day ON llm_usage(caller, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS memory_kv (
			key TEXT PRIMARY KEY,
			content TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_notes (
			day TEXT PRIMARY KEY,
			content TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fathomerr.New(opStore, fathomerr.KindIO, fmt.Errorf("migrate: %w", err))
		}
	}
	return nil
}

func (s *SQLite) AppendMessage(ctx context.Context, chatID string, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (chat_id, role, content, tool_call_id, tool_name, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		chatID, msg.Role, msg.Content, msg.ToolCallID, msg.ToolName, msg.CreatedAt)
	if err != nil {
		return fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return nil
}

func (s *SQLite) RecentMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 16
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, tool_call_id, tool_name, created_at FROM messages
		 WHERE chat_id = ? ORDER BY id DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var toolCallID, toolName sql.NullString
		if err := rows.Scan(&m.Role, &m.Content, &toolCallID, &toolName, &m.CreatedAt); err != nil {
			return nil, fathomerr.New(opStore, fathomerr.KindIO, err)
		}
		m.ToolCallID = toolCallID.String
		m.ToolName = toolName.String
		out = append(out, m)
	}
	// Reverse to chronological order (query fetched newest-first for LIMIT).
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func (s *SQLite) TaskList(ctx context.Context, chatID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, status, created_at, updated_at FROM tasks WHERE chat_id = ? ORDER BY created_at`, chatID)
	if err != nil {
		return nil, fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fathomerr.New(opStore, fathomerr.KindIO, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) TaskCreate(ctx context.Context, chatID, description string) (Task, error) {
	now := time.Now().UTC()
	t := Task{ID: uuid.NewString(), Description: description, Status: TaskPending, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, chat_id, description, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, chatID, t.Description, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Task{}, fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return t, nil
}

func (s *SQLite) TaskUpdateStatus(ctx context.Context, taskID string, status TaskStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().UTC(), taskID)
	if err != nil {
		return fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	if n == 0 {
		return fathomerr.New(opStore, fathomerr.KindNotFound, fmt.Errorf("task %q not found", taskID))
	}
	return nil
}

func (s *SQLite) RecallStore(ctx context.Context, chatID string, fact Fact) error {
	if fact.ID == "" {
		fact.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recall_facts (id, chat_id, category, content, importance) VALUES (?, ?, ?, ?, ?)`,
		fact.ID, chatID, fact.Category, fact.Content, fact.Importance)
	if err != nil {
		return fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return nil
}

// RecallQuery ranks facts by a simple relevance heuristic (substring
// overlap weighted by importance); the core only consumes the ranking,
// it never designs it (spec.md §4.5: "the store ranks; the loop only
// composes").
func (s *SQLite) RecallQuery(ctx context.Context, chatID, query string, limit int) ([]Fact, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, content, importance FROM recall_facts WHERE chat_id = ?`, chatID)
	if err != nil {
		return nil, fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	defer rows.Close()

	var all []Fact
	for rows.Next() {
		var f Fact
		if err := rows.Scan(&f.ID, &f.Category, &f.Content, &f.Importance); err != nil {
			return nil, fathomerr.New(opStore, fathomerr.KindIO, err)
		}
		all = append(all, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fathomerr.New(opStore, fathomerr.KindIO, err)
	}

	queryLower := strings.ToLower(query)
	for i := range all {
		score := float64(all[i].Importance)
		if queryLower != "" && strings.Contains(strings.ToLower(all[i].Content), queryLower) {
			score += 10
		}
		all[i].ScoreWhenReturned = score
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ScoreWhenReturned > all[j].ScoreWhenReturned })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *SQLite) RecallForget(ctx context.Context, factID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recall_facts WHERE id = ?`, factID)
	if err != nil {
		return fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return nil
}

func (s *SQLite) LogEvent(ctx context.Context, kind, subject, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (kind, subject, detail, created_at) VALUES (?, ?, ?, ?)`,
		kind, subject, detail, time.Now().UTC())
	if err != nil {
		return fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return nil
}

func (s *SQLite) LLMLog(ctx context.Context, rec UsageRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_usage (caller, provider, model, tokens_in, tokens_out, cost, latency_ms, status, extra, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Caller, rec.Provider, rec.Model, rec.TokensIn, rec.TokensOut, rec.Cost, rec.LatencyMS, rec.Status, rec.Extra, rec.RecordedAt)
	if err != nil {
		return fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return nil
}

func (s *SQLite) LLMTotalTokens(ctx context.Context, caller string, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(tokens_in + tokens_out) FROM llm_usage WHERE caller = ? AND recorded_at >= ? AND recorded_at < ?`,
		caller, start, end).Scan(&total)
	if err != nil {
		return 0, fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return total.Int64, nil
}

func (s *SQLite) ReadBootstrap(ctx context.Context, fileName string) (string, error) {
	return s.ReadMemory(ctx, "bootstrap:"+fileName)
}

func (s *SQLite) ReadMemory(ctx context.Context, key string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM memory_kv WHERE key = ?`, key).Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return content, nil
}

func (s *SQLite) WriteMemory(ctx context.Context, key, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memory_kv (key, content) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET content = excluded.content`,
		key, content)
	if err != nil {
		return fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return nil
}

func (s *SQLite) AppendMemory(ctx context.Context, key, content string) error {
	existing, err := s.ReadMemory(ctx, key)
	if err != nil {
		return err
	}
	if existing != "" {
		content = existing + "\n" + content
	}
	return s.WriteMemory(ctx, key, content)
}

func (s *SQLite) AppendDaily(ctx context.Context, day time.Time, content string) error {
	key := day.UTC().Format("2006-01-02")
	existing, err := s.ReadDaily(ctx, day)
	if err != nil {
		return err
	}
	if existing != "" {
		content = existing + "\n" + content
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO daily_notes (day, content) VALUES (?, ?) ON CONFLICT(day) DO UPDATE SET content = excluded.content`,
		key, content)
	if err != nil {
		return fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return nil
}

func (s *SQLite) ReadDaily(ctx context.Context, day time.Time) (string, error) {
	key := day.UTC().Format("2006-01-02")
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM daily_notes WHERE day = ?`, key).Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fathomerr.New(opStore, fathomerr.KindIO, err)
	}
	return content, nil
}

func (s *SQLite) Close() error { return s.db.Close() }
