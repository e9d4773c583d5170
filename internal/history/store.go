package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible release.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store records download sessions in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset history)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record inserts or replaces a session row.
func (s *Store) Record(ctx context.Context, session Session) error {
	if s == nil || s.db == nil {
		return errors.New("history store not open")
	}
	if strings.TrimSpace(session.ID) == "" {
		return errors.New("session id required")
	}
	var exitCode any
	if session.ExitCode != nil {
		exitCode = *session.ExitCode
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO download_sessions (
            id, revision, started_at, finished_at, outcome,
            downloaded_bytes, total_bytes, exit_code, signal, detail
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.Revision,
		session.StartedAt.UTC().Format(time.RFC3339Nano),
		session.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(session.Outcome),
		session.DownloadedBytes,
		session.TotalBytes,
		exitCode,
		nullableString(session.Signal),
		nullableString(session.Detail),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Recent returns up to limit sessions, newest first. A non-positive limit
// returns every session.
func (s *Store) Recent(ctx context.Context, limit int) ([]Session, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store not open")
	}
	query := `SELECT id, revision, started_at, finished_at, outcome,
            downloaded_bytes, total_bytes, exit_code, signal, detail
        FROM download_sessions ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Prune deletes sessions that started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("history store not open")
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM download_sessions WHERE started_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		session           Session
		started, finished string
		outcome           string
		exitCode          sql.NullInt64
		signal, detail    sql.NullString
	)
	if err := row.Scan(
		&session.ID,
		&session.Revision,
		&started,
		&finished,
		&outcome,
		&session.DownloadedBytes,
		&session.TotalBytes,
		&exitCode,
		&signal,
		&detail,
	); err != nil {
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	session.Outcome = Outcome(outcome)
	session.StartedAt = parseTimestamp(started)
	session.FinishedAt = parseTimestamp(finished)
	if exitCode.Valid {
		code := int(exitCode.Int64)
		session.ExitCode = &code
	}
	session.Signal = signal.String
	session.Detail = detail.String
	return session, nil
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
