package dispatch

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for the audit store.
)

// AuditLog is an append-only record of every dispatch, success or failure.
// It is a side channel, not a queryable store: writes are best-effort and
// a failed insert only produces a log line.
type AuditLog struct {
	db     *sql.DB
	logger *slog.Logger
}

// AuditEntry is one recorded dispatch, as read back by Recent.
type AuditEntry struct {
	ID         string
	ActionID   string
	ParamsJSON string
	SourceText string
	Outcome    string
	Message    string
	CreatedAt  time.Time
}

// OpenAuditLog opens (and migrates) the sqlite-backed audit log at path.
func OpenAuditLog(path string, logger *slog.Logger) (*AuditLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS dispatch_audit (
		id          TEXT PRIMARY KEY,
		action_id   TEXT NOT NULL,
		params_json TEXT NOT NULL DEFAULT '{}',
		source_text TEXT NOT NULL DEFAULT '',
		outcome     TEXT NOT NULL,
		message     TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_action ON dispatch_audit(action_id, created_at);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating audit db: %w", err)
	}

	return &AuditLog{db: db, logger: logger.With("component", "audit")}, nil
}

// Close releases the underlying database handle.
func (a *AuditLog) Close() error {
	return a.db.Close()
}

// Record appends one dispatch to the log. Errors are swallowed after
// logging; auditing must never fail the dispatch it describes.
func (a *AuditLog) Record(actionID string, params map[string]string, sourceText string, result Result) {
	paramsJSON := "{}"
	if len(params) > 0 {
		if b, err := json.Marshal(params); err == nil {
			paramsJSON = string(b)
		}
	}

	_, err := a.db.Exec(
		`INSERT INTO dispatch_audit (id, action_id, params_json, source_text, outcome, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), actionID, paramsJSON, sourceText, string(result.Outcome), result.UserMessage, time.Now().UTC(),
	)
	if err != nil {
		a.logger.Warn("audit write failed", "action", actionID, "error", err)
	}
}

// Recent returns the latest n audit entries, newest first. Used by the
// status command and the HTTP gateway.
func (a *AuditLog) Recent(n int) ([]AuditEntry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := a.db.Query(
		`SELECT id, action_id, params_json, source_text, outcome, message, created_at
		 FROM dispatch_audit ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ActionID, &e.ParamsJSON, &e.SourceText, &e.Outcome, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
