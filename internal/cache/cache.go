// Package cache records the fingerprint of the last render per output path
// so unchanged diagrams are not rendered twice.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"umlizer/internal/logger"
)

// FileName is the database file created inside the data directory.
const FileName = "cache.db"

const memoSize = 256

const schema = `
CREATE TABLE IF NOT EXISTS renders (
	output_path TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	format      TEXT NOT NULL,
	rendered_at TIMESTAMP NOT NULL
);`

// Entry is the last recorded render of one output path.
type Entry struct {
	Output      string
	Fingerprint string
	Format      string
	RenderedAt  time.Time
}

// Cache is a SQLite-backed render record with an in-process LRU in front.
// Entries are overwritten on fingerprint change and never evicted from disk.
type Cache struct {
	db     *sql.DB
	mu     sync.RWMutex
	memo   *lru.Cache[string, Entry]
	logger *slog.Logger
}

// Open creates the parent directory and the schema if needed.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	memo, err := lru.New[string, Entry](memoSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db, memo: memo, logger: logger.ForComponent("cache")}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func key(output string) (string, error) {
	abs, err := filepath.Abs(output)
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// Get returns the recorded entry for output, if any.
func (c *Cache) Get(ctx context.Context, output string) (Entry, bool, error) {
	k, err := key(output)
	if err != nil {
		return Entry{}, false, err
	}
	if e, ok := c.memo.Get(k); ok {
		return e, true, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var e Entry
	err = c.db.QueryRowContext(ctx,
		`SELECT output_path, fingerprint, format, rendered_at FROM renders WHERE output_path = ?`, k,
	).Scan(&e.Output, &e.Fingerprint, &e.Format, &e.RenderedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get cache entry: %w", err)
	}
	c.memo.Add(k, e)
	return e, true, nil
}

// Lookup reports a hit when output was last rendered with fingerprint and
// the file still exists.
func (c *Cache) Lookup(ctx context.Context, output, fingerprint string) (bool, error) {
	e, ok, err := c.Get(ctx, output)
	if err != nil || !ok {
		return false, err
	}
	if e.Fingerprint != fingerprint {
		c.logger.Debug("fingerprint changed", "output", e.Output)
		return false, nil
	}
	if _, err := os.Stat(e.Output); err != nil {
		c.logger.Debug("cached output missing", "output", e.Output)
		return false, nil
	}
	return true, nil
}

// Store records a successful render, replacing any previous entry.
func (c *Cache) Store(ctx context.Context, output, fingerprint, format string) error {
	k, err := key(output)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO renders (output_path, fingerprint, format, rendered_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(output_path) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			format = excluded.format,
			rendered_at = excluded.rendered_at
	`, k, fingerprint, format, now)
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	c.memo.Add(k, Entry{Output: k, Fingerprint: fingerprint, Format: format, RenderedAt: now})
	return nil
}

// Invalidate forgets output.
func (c *Cache) Invalidate(ctx context.Context, output string) error {
	k, err := key(output)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM renders WHERE output_path = ?`, k); err != nil {
		return fmt.Errorf("invalidate cache entry: %w", err)
	}
	c.memo.Remove(k)
	return nil
}

// Clear drops every entry and returns how many were removed.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, `DELETE FROM renders`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	c.memo.Purge()
	n, _ := res.RowsAffected()
	return n, nil
}

// Entries lists every recorded render ordered by output path.
func (c *Cache) Entries(ctx context.Context) ([]Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx,
		`SELECT output_path, fingerprint, format, rendered_at FROM renders ORDER BY output_path`)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Output, &e.Fingerprint, &e.Format, &e.RenderedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
