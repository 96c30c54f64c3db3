// Package store provides persistent banter.Store implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wizenheimer/banter"
	_ "modernc.org/sqlite"
)

// DefaultNamespace is used when no namespace is configured.
const DefaultNamespace = "default"

// SQLite stores conversations in a SQLite database. Several bots can share
// one file under different namespaces.
type SQLite struct {
	db        *sql.DB
	path      string
	namespace string
}

// OpenSQLite creates or opens a SQLite database at path.
func OpenSQLite(path, namespace string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return newSQLite(db, path, namespace)
}

// OpenSQLiteMemory creates an in-memory database (useful for testing).
func OpenSQLiteMemory(namespace string) (*SQLite, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	return newSQLite(db, ":memory:", namespace)
}

func newSQLite(db *sql.DB, path, namespace string) (*SQLite, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	s := &SQLite{db: db, path: path, namespace: namespace}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// migrate runs all schema migrations.
func (s *SQLite) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
    namespace TEXT NOT NULL,
    seq INTEGER NOT NULL,
    author TEXT NOT NULL CHECK(author IN ('user','bot')),
    text TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY(namespace, seq)
);

CREATE TABLE IF NOT EXISTS learned_entries (
    namespace TEXT NOT NULL,
    seq INTEGER NOT NULL,
    id TEXT NOT NULL,
    patterns TEXT NOT NULL DEFAULT '[]',
    responses TEXT NOT NULL DEFAULT '[]',
    weight REAL NOT NULL DEFAULT 0.8,
    tags TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY(namespace, id)
);

CREATE INDEX IF NOT EXISTS idx_learned_seq ON learned_entries(namespace, seq);
`

// Path returns the database location.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// LoadMemory returns the stored conversation, oldest first.
func (s *SQLite) LoadMemory(ctx context.Context) ([]banter.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT author, text, created_at
		FROM messages WHERE namespace = ?
		ORDER BY seq`, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []banter.Message
	for rows.Next() {
		var (
			msg     banter.Message
			author  string
			created string
		)
		if err := rows.Scan(&author, &msg.Text, &created); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Author = banter.Author(author)
		msg.Timestamp, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parsing message time: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// SaveMemory replaces the stored conversation.
func (s *SQLite) SaveMemory(ctx context.Context, messages []banter.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE namespace = ?`, s.namespace); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}

	for i, msg := range messages {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (namespace, seq, author, text, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			s.namespace, i, string(msg.Author), msg.Text, msg.Timestamp.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadLearned returns the stored learned entries in the order they were
// taught.
func (s *SQLite) LoadLearned(ctx context.Context) ([]banter.KnowledgeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patterns, responses, weight, tags
		FROM learned_entries WHERE namespace = ?
		ORDER BY seq`, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("querying learned entries: %w", err)
	}
	defer rows.Close()

	var entries []banter.KnowledgeEntry
	for rows.Next() {
		var (
			entry                     banter.KnowledgeEntry
			patterns, responses, tags string
		)
		if err := rows.Scan(&entry.ID, &patterns, &responses, &entry.Weight, &tags); err != nil {
			return nil, fmt.Errorf("scanning learned entry: %w", err)
		}
		if err := json.Unmarshal([]byte(patterns), &entry.Patterns); err != nil {
			return nil, fmt.Errorf("decoding patterns of %s: %w", entry.ID, err)
		}
		if err := json.Unmarshal([]byte(responses), &entry.Responses); err != nil {
			return nil, fmt.Errorf("decoding responses of %s: %w", entry.ID, err)
		}
		if err := json.Unmarshal([]byte(tags), &entry.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags of %s: %w", entry.ID, err)
		}
		entry.Learned = true
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SaveLearned replaces the stored learned entries.
func (s *SQLite) SaveLearned(ctx context.Context, entries []banter.KnowledgeEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM learned_entries WHERE namespace = ?`, s.namespace); err != nil {
		return fmt.Errorf("clearing learned entries: %w", err)
	}

	for i, entry := range entries {
		patterns, err := json.Marshal(nonNil(entry.Patterns))
		if err != nil {
			return fmt.Errorf("marshalling patterns: %w", err)
		}
		responses, err := json.Marshal(nonNil(entry.Responses))
		if err != nil {
			return fmt.Errorf("marshalling responses: %w", err)
		}
		tags, err := json.Marshal(nonNil(entry.Tags))
		if err != nil {
			return fmt.Errorf("marshalling tags: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO learned_entries (namespace, seq, id, patterns, responses, weight, tags)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.namespace, i, entry.ID, string(patterns), string(responses), entry.Weight, string(tags))
		if err != nil {
			return fmt.Errorf("inserting learned entry %s: %w", entry.ID, err)
		}
	}

	return tx.Commit()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Compile-time interface check.
var _ banter.Store = (*SQLite)(nil)
