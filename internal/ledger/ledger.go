// Package ledger persists averted-disaster events to a local SQLite
// database. It is the concrete sink behind verify.Ledger; the engine
// core itself never reads it back except for reporting.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"ace/internal/logging"
	"ace/internal/verify"
)

const schema = `
CREATE TABLE IF NOT EXISTS averted_disasters (
	id             TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL,
	reason         TEXT NOT NULL,
	value_saved    INTEGER NOT NULL,
	technical_debt TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_averted_project
	ON averted_disasters(project_id, created_at);
`

// Entry is a stored ledger row.
type Entry struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"projectId"`
	Reason        string    `json:"reason"`
	ValueSaved    int       `json:"valueSaved"`
	TechnicalDebt string    `json:"technicalDebt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store is a SQLite-backed resolution ledger.
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the ledger database at <stateDir>/ace.db,
// creating the directory and schema as needed.
func Open(stateDir string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewDiscard()
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	dbPath := filepath.Join(stateDir, "ace.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize ledger schema: %w", err)
	}

	logger.Debug("ledger opened", logging.Fields{"path": dbPath})

	return &Store{conn: conn, logger: logger, dbPath: dbPath}, nil
}

// Record writes one resolution event. Implements verify.Ledger.
func (s *Store) Record(event verify.LedgerEvent) error {
	id := uuid.NewString()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	_, err := s.conn.Exec(`
		INSERT INTO averted_disasters (id, project_id, reason, value_saved, technical_debt, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, event.ProjectID, event.Reason, event.ValueSaved, event.TechnicalDebt, createdAt)
	if err != nil {
		return fmt.Errorf("record ledger event: %w", err)
	}

	s.logger.Info("averted disaster recorded", logging.Fields{
		"id":         id,
		"projectId":  event.ProjectID,
		"valueSaved": event.ValueSaved,
	})
	return nil
}

// Recent returns up to limit entries for a project, newest first.
func (s *Store) Recent(projectID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.conn.Query(`
		SELECT id, project_id, reason, value_saved, technical_debt, created_at
		FROM averted_disasters
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Reason, &e.ValueSaved, &e.TechnicalDebt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TotalValueSaved sums value_saved across all events for a project.
func (s *Store) TotalValueSaved(projectID string) (int, error) {
	var total sql.NullInt64
	err := s.conn.QueryRow(`
		SELECT SUM(value_saved) FROM averted_disasters WHERE project_id = ?
	`, projectID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ledger value: %w", err)
	}
	return int(total.Int64), nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}
