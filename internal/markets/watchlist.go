package markets

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"polyflow/internal/logger"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// watchlistFile is the on-disk shape of configs/markets.yaml.
type watchlistFile struct {
	Markets []struct {
		Slug     string `yaml:"slug"`
		Question string `yaml:"question,omitempty"`
		Enabled  *bool  `yaml:"enabled,omitempty"`
	} `yaml:"markets"`
}

// Watchlist is the set of prediction-market slugs the pipeline trades.
// When backed by a file it hot-reloads on change; otherwise it serves the
// static fallback list.
type Watchlist struct {
	mu      sync.RWMutex
	slugs   []string
	path    string
	watcher *fsnotify.Watcher
}

// NewStatic builds a watchlist from a fixed slug list.
func NewStatic(slugs []string) (*Watchlist, error) {
	normalized, err := normalize(slugs)
	if err != nil {
		return nil, err
	}
	return &Watchlist{slugs: normalized}, nil
}

// NewFromFile loads the watchlist file and starts watching it for changes.
func NewFromFile(path string) (*Watchlist, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("watchlist requires a path")
	}
	w := &Watchlist{path: path}
	if err := w.reload(); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("starting watchlist watcher failed: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s failed: %w", path, err)
	}
	w.watcher = watcher
	go w.watchLoop()
	return w, nil
}

func (w *Watchlist) watchLoop() {
	for {
		select {
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			if err := w.reload(); err != nil {
				logger.Errorf("watchlist reload failed (%s): %v", evt.Name, err)
				continue
			}
			logger.Infof("watchlist reloaded: %d markets", len(w.Slugs()))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("watchlist watcher error: %v", err)
		}
	}
}

func (w *Watchlist) reload() error {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	var file watchlistFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing watchlist failed: %w", err)
	}
	slugs := make([]string, 0, len(file.Markets))
	for _, m := range file.Markets {
		if m.Enabled != nil && !*m.Enabled {
			continue
		}
		slugs = append(slugs, m.Slug)
	}
	normalized, err := normalize(slugs)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.slugs = normalized
	w.mu.Unlock()
	return nil
}

// Slugs returns a copy of the active market slugs.
func (w *Watchlist) Slugs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.slugs))
	copy(out, w.slugs)
	return out
}

// Contains reports whether slug is on the watchlist.
func (w *Watchlist) Contains(slug string) bool {
	slug = strings.ToLower(strings.TrimSpace(slug))
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, s := range w.slugs {
		if s == slug {
			return true
		}
	}
	return false
}

// Close stops the file watcher if one is running.
func (w *Watchlist) Close() error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

// normalize lower-cases, trims, and dedupes slugs.
func normalize(slugs []string) ([]string, error) {
	if len(slugs) == 0 {
		return nil, errors.New("market list is empty")
	}
	seen := make(map[string]struct{}, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, errors.New("market list is empty after normalization")
	}
	return out, nil
}
