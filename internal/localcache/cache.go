// Package localcache is the on-device durable fallback: the last
// known-good snapshot of every synchronized collection, persisted in
// SQLite so it survives restarts. It is never authoritative; the sync
// layer overwrites it on every delivered remote snapshot and falls back
// to it when the remote is unreachable.
package localcache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Ryuko2/dinerito/internal/core"
	"github.com/Ryuko2/dinerito/internal/log"
)

const markerMigrated = "legacy_migrated"

// Cache stores one JSON array snapshot per collection plus named
// boolean markers.
type Cache struct {
	db     *sql.DB
	logger *log.Logger
}

func Open(dbPath string, logger *log.Logger) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping cache database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run cache migrations: %w", err)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Cache{db: db, logger: logger.WithComponent(log.ComponentCache)}, nil
}

func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Set persists the snapshot for a collection. Failures are logged and
// swallowed: a cache write must never block the live update path, it
// only degrades offline-fallback durability.
func (c *Cache) Set(collection string, docs any) {
	payload, err := json.Marshal(docs)
	if err != nil {
		c.logger.Warn("cache snapshot marshal failed",
			log.FieldCollection, collection, log.FieldError, err)
		return
	}
	_, err = c.db.Exec(
		`INSERT INTO snapshots (collection, payload, schema_version, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection) DO UPDATE SET
		   payload = excluded.payload,
		   schema_version = excluded.schema_version,
		   updated_at = excluded.updated_at`,
		collection, string(payload), core.SchemaVersion, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		c.logger.Warn("cache snapshot write failed",
			log.FieldCollection, collection, log.FieldError, err)
	}
}

// Get decodes the stored snapshot into out (a pointer to a slice).
// Missing or malformed data leaves out untouched, so callers always see
// an empty array rather than an error.
func (c *Cache) Get(collection string, out any) {
	var payload string
	err := c.db.QueryRow(
		`SELECT payload FROM snapshots WHERE collection = ?`, collection,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		c.logger.Warn("cache snapshot read failed",
			log.FieldCollection, collection, log.FieldError, err)
		return
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		c.logger.Warn("cache snapshot malformed, treating as empty",
			log.FieldCollection, collection, log.FieldError, err)
	}
}

// Migrated reports whether the one-shot legacy migration has completed
// on this installation. Permanent once true.
func (c *Cache) Migrated() bool {
	var value string
	err := c.db.QueryRow(
		`SELECT value FROM markers WHERE name = ?`, markerMigrated,
	).Scan(&value)
	if err != nil {
		return false
	}
	return value == "true"
}

// SetMigrated records migration completion. Unlike snapshot writes this
// must not be swallowed: a silently missing marker would re-run the
// migration forever.
func (c *Cache) SetMigrated() error {
	_, err := c.db.Exec(
		`INSERT INTO markers (name, value) VALUES (?, 'true')
		 ON CONFLICT(name) DO UPDATE SET value = 'true'`,
		markerMigrated,
	)
	if err != nil {
		return fmt.Errorf("set migration marker: %w", err)
	}
	return nil
}
