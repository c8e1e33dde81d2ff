// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides author/message persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// newID returns a fresh row identifier.
func newID() string {
	return uuid.New().String()
}

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Wait out writer contention instead of failing with SQLITE_BUSY
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS authors (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			thread_id TEXT UNIQUE,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_authors_thread_id
			ON authors(thread_id);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL,
			body TEXT NOT NULL,
			origin TEXT NOT NULL DEFAULT 'human',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (author_id) REFERENCES authors(id),

			CHECK (origin IN ('human', 'automated'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_author_created
			ON messages(author_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// isForeignKeyViolation checks if the error is a SQLite foreign key violation
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// GetOrCreateAuthor returns the author with the given name, creating it with
// no thread assigned if it doesn't exist yet. The UNIQUE constraint on name
// is the arbiter under concurrent first-sends: the losing insert fails and
// the existing row is re-read instead.
func (s *SQLiteStore) GetOrCreateAuthor(ctx context.Context, name string) (*Author, bool, error) {
	author, err := s.GetAuthorByName(ctx, name)
	if err == nil {
		return author, false, nil
	}
	if err != ErrNotFound {
		return nil, false, err
	}

	candidate := &Author{
		ID:        newID(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO authors (id, name, thread_id, created_at)
		VALUES (?, ?, NULL, ?)
	`, candidate.ID, candidate.Name, candidate.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isConstraintViolation(err) {
			// Lost the creation race; re-read the winner's row
			author, lookupErr := s.GetAuthorByName(ctx, name)
			if lookupErr != nil {
				return nil, false, fmt.Errorf("re-reading author after duplicate insert: %w", lookupErr)
			}
			return author, false, nil
		}
		return nil, false, fmt.Errorf("inserting author: %w", err)
	}

	s.logger.Debug("created author", "id", candidate.ID, "name", name)
	return candidate, true, nil
}

// GetAuthorByName retrieves an author by name.
// Returns ErrNotFound if the author doesn't exist.
func (s *SQLiteStore) GetAuthorByName(ctx context.Context, name string) (*Author, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, thread_id, created_at
		FROM authors
		WHERE name = ?
	`, name)
	return scanAuthor(row)
}

// FindAuthorByThread retrieves the author owning the given thread.
// Returns ErrNotFound if no author has this thread assigned.
func (s *SQLiteStore) FindAuthorByThread(ctx context.Context, threadID string) (*Author, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, thread_id, created_at
		FROM authors
		WHERE thread_id = ?
	`, threadID)
	return scanAuthor(row)
}

func scanAuthor(row *sql.Row) (*Author, error) {
	var author Author
	var threadID sql.NullString
	var createdAtStr string

	err := row.Scan(&author.ID, &author.Name, &threadID, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning author: %w", err)
	}

	if threadID.Valid {
		author.ThreadID = threadID.String
	}

	author.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &author, nil
}

// AssignThread assigns a thread to an author, once. The conditional update
// guards single-assignment: a second assignment returns ErrThreadAssigned so
// the caller re-reads the existing row instead of clobbering it.
func (s *SQLiteStore) AssignThread(ctx context.Context, authorID, threadID string) error {
	return assignThread(ctx, s.db, authorID, threadID)
}

// execer abstracts *sql.DB and *sql.Tx so assignment and append can run
// standalone or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func assignThread(ctx context.Context, e execer, authorID, threadID string) error {
	result, err := e.ExecContext(ctx, `
		UPDATE authors
		SET thread_id = ?
		WHERE id = ? AND thread_id IS NULL
	`, threadID, authorID)
	if err != nil {
		if isConstraintViolation(err) {
			// thread_id UNIQUE: another author already owns this thread
			return ErrDuplicateThread
		}
		return fmt.Errorf("assigning thread: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists int
		err := e.QueryRowContext(ctx, `SELECT 1 FROM authors WHERE id = ?`, authorID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("checking author: %w", err)
		}
		return ErrThreadAssigned
	}

	return nil
}

// AppendMessage inserts an immutable message record.
// Returns ErrNotFound if the author doesn't exist.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	if err := appendMessage(ctx, s.db, msg); err != nil {
		return err
	}
	s.logger.Debug("appended message", "id", msg.ID, "author_id", msg.AuthorID, "origin", msg.Origin)
	return nil
}

func appendMessage(ctx context.Context, e execer, msg *Message) error {
	origin := msg.Origin
	if origin == "" {
		origin = OriginHuman
	}

	_, err := e.ExecContext(ctx, `
		INSERT INTO messages (id, author_id, body, origin, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.AuthorID, msg.Body, string(origin), msg.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("inserting message: %w", err)
	}

	return nil
}

// AssignThreadAndAppend assigns a thread and appends the first message as a
// single transaction. On ErrThreadAssigned or ErrDuplicateThread nothing is
// committed and the caller decides how to recover.
func (s *SQLiteStore) AssignThreadAndAppend(ctx context.Context, authorID, threadID string, msg *Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := assignThread(ctx, tx, authorID, threadID); err != nil {
		return err
	}

	if err := appendMessage(ctx, tx, msg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("assigned thread and appended first message",
		"author_id", authorID, "thread_id", threadID, "message_id", msg.ID)
	return nil
}

// ListMessages retrieves all messages for an author in insertion order
// (oldest first).
func (s *SQLiteStore) ListMessages(ctx context.Context, authorID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, body, origin, created_at
		FROM messages
		WHERE author_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, authorID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var origin string
		var createdAtStr string

		if err := rows.Scan(&msg.ID, &msg.AuthorID, &msg.Body, &origin, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		msg.Origin = Origin(origin)
		msg.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
