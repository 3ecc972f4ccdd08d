// Package migrate moves legacy on-disk data into the remote store.
// Earlier releases kept expenses and savings goals in plain JSON files
// next to the cache. The runner uploads them once, records a marker in
// the local cache, and removes the files so later starts are no-ops.
package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Ryuko2/dinerito/internal/core"
	"github.com/Ryuko2/dinerito/internal/localcache"
	"github.com/Ryuko2/dinerito/internal/log"
	"github.com/Ryuko2/dinerito/internal/normalize"
	"github.com/Ryuko2/dinerito/internal/remote"
	"github.com/Ryuko2/dinerito/internal/sync"
)

// legacyFiles maps the file names the old storage layer wrote to the
// collections their records belong in. Only expenses and goals ever
// existed in that format.
var legacyFiles = map[string]string{
	"expenses.json": core.CollectionExpenses,
	"goals.json":    core.CollectionGoals,
}

// Runner performs the one-time legacy upload.
type Runner struct {
	dataDir string
	cache   *localcache.Cache
	targets map[string]sync.Syncer
	logger  *log.Logger
}

// NewRunner builds a runner that reads legacy files from dataDir and
// writes through the given collection syncers.
func NewRunner(dataDir string, cache *localcache.Cache, targets map[string]sync.Syncer, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Runner{
		dataDir: dataDir,
		cache:   cache,
		targets: targets,
		logger:  logger.WithComponent(log.ComponentMigration),
	}
}

// Run uploads legacy records if any exist and the marker is unset. It
// deletes the legacy files and sets the marker only after every record
// was written; a failure partway leaves files and marker untouched so
// the next start retries. Retried records may be written twice, the
// remote keeps both and the user resolves duplicates by hand.
func (r *Runner) Run(ctx context.Context) error {
	if r.cache != nil && r.cache.Migrated() {
		r.logger.Debug("legacy migration already completed")
		return nil
	}

	batches, err := r.load()
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		// Nothing to migrate, nothing to mark. A fresh install stays in
		// this state until legacy files ever appear.
		r.logger.Debug("no legacy data found")
		return nil
	}

	var total int
	for _, b := range batches {
		target, ok := r.targets[b.collection]
		if !ok {
			return fmt.Errorf("no target for legacy collection %q", b.collection)
		}
		for _, raw := range b.docs {
			doc := normalize.Document(b.collection, raw, "")
			delete(doc, "id")
			if _, err := target.Add(ctx, doc); err != nil {
				return fmt.Errorf("migrate %s: %w", b.collection, err)
			}
			total++
		}
		r.logger.Info("legacy records uploaded",
			log.FieldCollection, b.collection, log.FieldCount, len(b.docs))
	}

	for _, b := range batches {
		if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove legacy file %s: %w", b.path, err)
		}
	}
	return r.finish(total)
}

func (r *Runner) finish(total int) error {
	if r.cache != nil {
		if err := r.cache.SetMigrated(); err != nil {
			return fmt.Errorf("set migration marker: %w", err)
		}
	}
	r.logger.Info("legacy migration finished", log.FieldCount, total)
	return nil
}

type batch struct {
	collection string
	path       string
	docs       []remote.Document
}

func (r *Runner) load() ([]batch, error) {
	var out []batch
	for name, collection := range legacyFiles {
		path := filepath.Join(r.dataDir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read legacy file %s: %w", path, err)
		}
		var docs []remote.Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("parse legacy file %s: %w", path, err)
		}
		if len(docs) == 0 {
			out = append(out, batch{collection: collection, path: path})
			continue
		}
		out = append(out, batch{collection: collection, path: path, docs: docs})
	}
	return out, nil
}
