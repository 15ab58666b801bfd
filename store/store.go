// Package store persists page SEO profiles in SQLite, keyed by slug.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seo-optimizer/seoengine/analyzer"
)

// ErrNotFound is returned when no profile exists for a slug.
var ErrNotFound = errors.New("not found")

// Record is a stored profile together with its last computed score.
type Record struct {
	Profile   analyzer.PageSeoProfile
	Score     int
	UpdatedAt time.Time
}

// Summary is the listing view of a stored profile.
type Summary struct {
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	FocusKeyword string    `json:"focusKeyword"`
	Score        int       `json:"score"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the database at path and initializes the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, now: time.Now}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS page_seo_profiles (
		slug TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		focus_keyword TEXT NOT NULL DEFAULT '',
		profile TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Save inserts or replaces the profile stored under p.Slug.
func (db *DB) Save(ctx context.Context, p analyzer.PageSeoProfile, score int) (Record, error) {
	slug := strings.TrimSpace(p.Slug)
	if slug == "" {
		return Record{}, errors.New("save profile: empty slug")
	}
	p.Slug = slug

	data, err := json.Marshal(p)
	if err != nil {
		return Record{}, fmt.Errorf("marshal profile: %w", err)
	}

	now := db.now().UTC().Truncate(time.Second)
	query := `
	INSERT INTO page_seo_profiles (slug, title, focus_keyword, profile, score, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(slug) DO UPDATE SET
		title = excluded.title,
		focus_keyword = excluded.focus_keyword,
		profile = excluded.profile,
		score = excluded.score,
		updated_at = excluded.updated_at
	`
	if _, err := db.conn.ExecContext(ctx, query, slug, p.Title, p.FocusKeyword, string(data), score, now); err != nil {
		return Record{}, fmt.Errorf("save profile %q: %w", slug, err)
	}
	return Record{Profile: p, Score: score, UpdatedAt: now}, nil
}

// Get returns the profile stored under slug.
func (db *DB) Get(ctx context.Context, slug string) (Record, error) {
	slug = strings.TrimSpace(slug)
	row := db.conn.QueryRowContext(ctx,
		`SELECT profile, score, updated_at FROM page_seo_profiles WHERE slug = ?`, slug)

	var (
		data string
		rec  Record
	)
	if err := row.Scan(&data, &rec.Score, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("get profile %q: %w", slug, err)
	}
	if err := json.Unmarshal([]byte(data), &rec.Profile); err != nil {
		return Record{}, fmt.Errorf("decode profile %q: %w", slug, err)
	}
	return rec, nil
}

// List returns a summary of every stored profile, ordered by slug.
func (db *DB) List(ctx context.Context) ([]Summary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT slug, title, focus_keyword, score, updated_at FROM page_seo_profiles ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.Slug, &s.Title, &s.FocusKeyword, &s.Score, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// All returns every stored record, ordered by slug.
func (db *DB) All(ctx context.Context) ([]Record, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT profile, score, updated_at FROM page_seo_profiles ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			data string
			rec  Record
		)
		if err := rows.Scan(&data, &rec.Score, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &rec.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the profile stored under slug.
func (db *DB) Delete(ctx context.Context, slug string) error {
	slug = strings.TrimSpace(slug)
	res, err := db.conn.ExecContext(ctx, `DELETE FROM page_seo_profiles WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("delete profile %q: %w", slug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile %q: %w", slug, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
