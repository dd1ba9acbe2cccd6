package scoring

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"signalbot/internal/logger"
	"signalbot/internal/signal"
)

const reloadDebounce = 250 * time.Millisecond

// Snapshot 描述当前生效的模型。
type Snapshot struct {
	Model    LinearModel
	Version  int64
	LoadedAt time.Time
}

// ModelRegistry serves predictions from a model file and reloads it when the
// file changes. A reload that fails validation keeps the last good model; if
// no model was ever loaded, Predict reports ErrUnavailable.
type ModelRegistry struct {
	path string

	mu       sync.RWMutex
	snapshot *Snapshot
}

func NewModelRegistry(path string) (*ModelRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("model registry requires path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	r := &ModelRegistry{path: abs}
	if err := r.Reload(); err != nil {
		logger.Warnf("model registry: initial load failed, alerts disabled until a valid model appears: %v", err)
	}
	return r, nil
}

func (r *ModelRegistry) Path() string { return r.path }

// Snapshot returns the active model, or false when none is loaded.
func (r *ModelRegistry) Snapshot() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		return Snapshot{}, false
	}
	return *r.snapshot, true
}

func (r *ModelRegistry) Predict(ctx context.Context, v signal.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	snap, ok := r.Snapshot()
	if !ok {
		return 0, ErrUnavailable
	}
	return snap.Model.Predict(v), nil
}

func (r *ModelRegistry) Reload() error {
	m, err := LoadModel(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	var version int64 = 1
	if r.snapshot != nil {
		version = r.snapshot.Version + 1
	}
	r.snapshot = &Snapshot{Model: m, Version: version, LoadedAt: time.Now()}
	r.mu.Unlock()
	logger.Infof("model registry: loaded %s v%d (link=%s weights=%d) from %s",
		m.Name, m.Version, m.Link, len(m.Weights), filepath.Base(r.path))
	return nil
}

// Watch reloads on file changes until ctx is done. The parent directory is
// watched so editors that replace the file atomically are picked up.
func (r *ModelRegistry) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("model watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("model watcher: %w", err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != r.path {
				continue
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("model watcher error: %v", err)
		case <-pending:
			pending = nil
			if err := r.Reload(); err != nil {
				logger.Errorf("model reload failed, keeping previous model: %v", err)
			}
		}
	}
}
