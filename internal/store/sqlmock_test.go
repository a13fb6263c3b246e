package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fathomlabs/fathom/internal/fathomerr"
)

// TestLogEventWrapsDriverFailure uses go-sqlmock to simulate a SQL-level
// failure the real sqlite driver would be hard to provoke deterministically
// (a write error mid-statement), verifying LogEvent wraps it as an IO kind.
func TestLogEventWrapsDriverFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO audit_events").WillReturnError(sqlErr{"disk I/O error"})

	s := &SQLite{db: db}
	err = s.LogEvent(context.Background(), "tool.invocation", "echo", "{}")
	if !fathomerr.Is(err, fathomerr.KindIO) {
		t.Fatalf("expected io-kind error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

type sqlErr struct{ msg string }

func (e sqlErr) Error() string { return e.msg }
