// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/loomverse/studio/internal/log"
)

// FallbackRepository implements Repository on a single JSON file. It is the
// storage of last resort for environments without a database; writes are
// atomic via rename and external edits to the file are picked up live.
type FallbackRepository struct {
	path   string
	logger zerolog.Logger

	mu      sync.RWMutex
	records map[string]*Record

	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

func NewFallbackRepository(path string) (*FallbackRepository, error) {
	r := &FallbackRepository{
		path:    path,
		logger:  log.WithComponent("store"),
		records: make(map[string]*Record),
		done:    make(chan struct{}),
	}
	if err := r.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: watch %s: %v", ErrPersistence, path, err)
	}
	// Watch the directory: atomic writes replace the file by rename, which
	// would silently detach a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("%w: watch %s: %v", ErrPersistence, path, err)
	}
	r.watcher = watcher
	go r.watch()

	r.logger.Info().Str("event", "store.fallback_open").Str("path", path).
		Int("records", len(r.records)).Msg("fallback repository ready")
	return r, nil
}

func (r *FallbackRepository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		err = r.watcher.Close()
	})
	return err
}

func (r *FallbackRepository) watch() {
	for {
		select {
		case <-r.done:
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != r.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.load(); err != nil {
				r.logger.Warn().Err(err).Str("event", "store.reload_failed").Msg("could not reload fallback file")
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn().Err(err).Str("event", "store.watch_error").Msg("fallback watcher error")
		}
	}
}

func (r *FallbackRepository) load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrPersistence, r.path, err)
	}

	var list []*Record
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrPersistence, r.path, err)
	}

	r.mu.Lock()
	r.records = make(map[string]*Record, len(list))
	for _, rec := range list {
		r.records[rec.ID] = rec
	}
	r.mu.Unlock()
	return nil
}

// persist writes the full record set atomically. Callers hold no lock.
func (r *FallbackRepository) persist() error {
	list := r.snapshot()
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	if err := renameio.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, r.path, err)
	}
	return nil
}

func (r *FallbackRepository) snapshot() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

func (r *FallbackRepository) Put(ctx context.Context, rec *Record) error {
	cp := *rec
	r.mu.Lock()
	r.records[rec.ID] = &cp
	r.mu.Unlock()
	return r.persist()
}

func (r *FallbackRepository) Get(ctx context.Context, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *FallbackRepository) List(ctx context.Context) ([]*Record, error) {
	return r.snapshot(), nil
}

func (r *FallbackRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.records[id]
	delete(r.records, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return r.persist()
}

func (r *FallbackRepository) AddView(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok {
		r.mu.Unlock()
		return 0, ErrNotFound
	}
	rec.Views++
	views := rec.Views
	r.mu.Unlock()
	if err := r.persist(); err != nil {
		return 0, err
	}
	return views, nil
}

func (r *FallbackRepository) SetPublic(ctx context.Context, id string, public bool) error {
	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	rec.IsPublic = public
	r.mu.Unlock()
	return r.persist()
}

func (r *FallbackRepository) Search(ctx context.Context, query string) ([]*Record, error) {
	all := r.snapshot()
	out := make([]*Record, 0, len(all))
	for _, rec := range all {
		if rec.Matches(query) {
			out = append(out, rec)
		}
	}
	return out, nil
}
