// Package index provides a SQLite-backed local index of saved
// bookmarks, used for listing and offline browsing. It is a read-side
// mirror of the remote store, never a write queue.
package index

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB represents a SQLite database connection for the bookmark index.
type DB struct {
	path string
	conn *sql.DB
}

// Record is one indexed bookmark.
type Record struct {
	Number    int
	Repo      string // "owner/repo"
	Title     string
	URL       string
	Provider  string
	Type      string
	Tags      []string // stored as a JSON array
	State     string
	HTMLURL   string
	SavedAt   string
	UpdatedAt string
}

// createTableSQL defines the schema for the bookmarks table.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS bookmarks (
    id INTEGER PRIMARY KEY,
    number INTEGER NOT NULL,
    repo TEXT NOT NULL,
    title TEXT NOT NULL,
    url TEXT NOT NULL,
    provider TEXT,
    type TEXT,
    tags TEXT,  -- JSON array of tag names
    state TEXT,
    html_url TEXT,
    saved_at TEXT,
    updated_at TEXT,
    UNIQUE(repo, number)
);
`

// InitDB creates or opens a SQLite database at the given path and
// initializes the schema.
func InitDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer; one connection avoids
	// "database is locked" errors.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if _, err := conn.Exec(createTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create bookmarks table: %w", err)
	}

	return &DB{path: path, conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Upsert inserts or updates a bookmark record.
func (db *DB) Upsert(rec Record) error {
	tagsJSON, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO bookmarks (
			number, repo, title, url, provider, type, tags,
			state, html_url, saved_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = db.conn.Exec(query,
		rec.Number,
		rec.Repo,
		rec.Title,
		rec.URL,
		sql.NullString{String: rec.Provider, Valid: rec.Provider != ""},
		sql.NullString{String: rec.Type, Valid: rec.Type != ""},
		string(tagsJSON),
		sql.NullString{String: rec.State, Valid: rec.State != ""},
		sql.NullString{String: rec.HTMLURL, Valid: rec.HTMLURL != ""},
		sql.NullString{String: rec.SavedAt, Valid: rec.SavedAt != ""},
		sql.NullString{String: rec.UpdatedAt, Valid: rec.UpdatedAt != ""},
	)
	if err != nil {
		return fmt.Errorf("failed to upsert bookmark: %w", err)
	}

	return nil
}

// Get retrieves a bookmark by repo and issue number.
func (db *DB) Get(repo string, number int) (*Record, error) {
	query := selectColumns + ` WHERE repo = ? AND number = ?`
	row := db.conn.QueryRow(query, repo, number)
	return scanRecordFrom(row)
}

// List retrieves bookmarks for a repository, newest saved first.
// state filters by remote state; "" or "all" returns everything.
func (db *DB) List(repo, state string) ([]Record, error) {
	query := selectColumns + ` WHERE repo = ?`
	args := []interface{}{repo}
	if state != "" && state != "all" {
		query += ` AND state = ?`
		args = append(args, state)
	}
	query += ` ORDER BY saved_at DESC, number DESC`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecordFrom(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// SetState updates the remote state of an indexed bookmark.
func (db *DB) SetState(repo string, number int, state string) error {
	result, err := db.conn.Exec(
		`UPDATE bookmarks SET state = ? WHERE repo = ? AND number = ?`,
		state, repo, number,
	)
	if err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no bookmark found with repo=%s and number=%d", repo, number)
	}

	return nil
}

// ReplaceAll atomically replaces the index for a repository with the
// given records. Used by a full pull from the remote store.
func (db *DB) ReplaceAll(repo string, records []Record) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM bookmarks WHERE repo = ?`, repo); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	query := `
		INSERT INTO bookmarks (
			number, repo, title, url, provider, type, tags,
			state, html_url, saved_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, rec := range records {
		tagsJSON, err := json.Marshal(rec.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags: %w", err)
		}
		_, err = tx.Exec(query,
			rec.Number,
			repo,
			rec.Title,
			rec.URL,
			sql.NullString{String: rec.Provider, Valid: rec.Provider != ""},
			sql.NullString{String: rec.Type, Valid: rec.Type != ""},
			string(tagsJSON),
			sql.NullString{String: rec.State, Valid: rec.State != ""},
			sql.NullString{String: rec.HTMLURL, Valid: rec.HTMLURL != ""},
			sql.NullString{String: rec.SavedAt, Valid: rec.SavedAt != ""},
			sql.NullString{String: rec.UpdatedAt, Valid: rec.UpdatedAt != ""},
		)
		if err != nil {
			return fmt.Errorf("failed to insert bookmark #%d: %w", rec.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const selectColumns = `
	SELECT number, repo, title, url, provider, type, tags,
	       state, html_url, saved_at, updated_at
	FROM bookmarks`

// scanner is an interface that both *sql.Row and *sql.Rows implement.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecordFrom scans a row into a Record.
func scanRecordFrom(s scanner) (*Record, error) {
	var rec Record
	var provider, typ, tags, state, htmlURL, savedAt, updatedAt sql.NullString

	err := s.Scan(
		&rec.Number,
		&rec.Repo,
		&rec.Title,
		&rec.URL,
		&provider,
		&typ,
		&tags,
		&state,
		&htmlURL,
		&savedAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan bookmark: %w", err)
	}

	rec.Provider = provider.String
	rec.Type = typ.String
	rec.State = state.String
	rec.HTMLURL = htmlURL.String
	rec.SavedAt = savedAt.String
	rec.UpdatedAt = updatedAt.String

	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &rec.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	return &rec, nil
}
