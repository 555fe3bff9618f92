// Package library provides the SQLite-backed story set library.
//
// The library stores content only: sets and their ordered stories. Playback
// state is never persisted; a session always starts from the first story.
package library

import (
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/osa030/storybox/internal/domain/story"
)

// ErrSetNotFound is returned when a requested set does not exist.
var ErrSetNotFound = errors.New("story set not found")

// Library is a SQLite-backed store of story sets.
type Library struct {
	db *sql.DB
}

// Open opens (and creates if needed) the library at the given path.
func Open(path string) (*Library, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open library database")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	l := &Library{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate library database")
	}
	return l, nil
}

func (l *Library) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sets (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stories (
		id TEXT NOT NULL,
		set_id TEXT NOT NULL REFERENCES sets(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		media_url TEXT NOT NULL,
		caption TEXT,
		posted_at DATETIME NOT NULL,
		PRIMARY KEY (set_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_stories_set_position ON stories(set_id, position);
	`
	_, err := l.db.Exec(schema)
	return err
}

// SaveSet inserts or replaces a set and its stories atomically.
// Sets without an ID are assigned one.
func (l *Library) SaveSet(set *story.Set) error {
	if set.ID == "" {
		set.ID = uuid.New().String()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now()
	}
	if err := set.Validate(); err != nil {
		return errors.Wrap(err, "invalid set")
	}

	tx, err := l.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO sets (id, title, author, created_at) VALUES (?, ?, ?, ?)`,
		set.ID, set.Title, set.Author, set.CreatedAt,
	); err != nil {
		return errors.Wrap(err, "failed to save set")
	}

	if _, err := tx.Exec(`DELETE FROM stories WHERE set_id = ?`, set.ID); err != nil {
		return errors.Wrap(err, "failed to clear stories")
	}

	for i, st := range set.Stories {
		if _, err := tx.Exec(
			`INSERT INTO stories (id, set_id, position, kind, media_url, caption, posted_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			st.ID, set.ID, i, string(st.Kind), st.MediaURL, st.Caption, st.PostedAt,
		); err != nil {
			return errors.Wrapf(err, "failed to save story %s", st.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit")
}

// GetSet loads a set with its stories in position order.
func (l *Library) GetSet(id string) (*story.Set, error) {
	var set story.Set
	err := l.db.QueryRow(
		`SELECT id, title, author, created_at FROM sets WHERE id = ?`, id,
	).Scan(&set.ID, &set.Title, &set.Author, &set.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load set")
	}

	rows, err := l.db.Query(
		`SELECT id, kind, media_url, caption, posted_at
		 FROM stories WHERE set_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load stories")
	}
	defer rows.Close()

	for rows.Next() {
		var st story.Story
		var kind string
		var caption sql.NullString
		if err := rows.Scan(&st.ID, &kind, &st.MediaURL, &caption, &st.PostedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan story")
		}
		st.Kind = story.Kind(kind)
		st.Caption = caption.String
		set.Stories = append(set.Stories, st)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate stories")
	}

	return &set, nil
}

// SetSummary is a set listing entry without its stories.
type SetSummary struct {
	ID         string
	Title      string
	Author     string
	StoryCount int
	CreatedAt  time.Time
}

// ListSets returns summaries of all sets, newest first.
func (l *Library) ListSets() ([]SetSummary, error) {
	rows, err := l.db.Query(`
		SELECT s.id, s.title, s.author, s.created_at, COUNT(st.id)
		FROM sets s
		LEFT JOIN stories st ON st.set_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sets")
	}
	defer rows.Close()

	var result []SetSummary
	for rows.Next() {
		var s SetSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.Author, &s.CreatedAt, &s.StoryCount); err != nil {
			return nil, errors.Wrap(err, "failed to scan set summary")
		}
		result = append(result, s)
	}
	return result, errors.Wrap(rows.Err(), "failed to iterate sets")
}

// DeleteSet removes a set and its stories.
func (l *Library) DeleteSet(id string) error {
	res, err := l.db.Exec(`DELETE FROM sets WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete set")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check deletion")
	}
	if n == 0 {
		return ErrSetNotFound
	}
	return nil
}

// Close closes the underlying database.
func (l *Library) Close() error {
	return l.db.Close()
}
