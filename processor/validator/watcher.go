package validator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// keywordSet is the validator's concurrently-readable keyword list.
// The set is swapped wholesale on reload; evaluation always sees a
// consistent snapshot.
type keywordSet struct {
	mu    sync.RWMutex
	words []string
}

func newKeywordSet(words []string) *keywordSet {
	return &keywordSet{words: words}
}

func (k *keywordSet) get() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.words
}

func (k *keywordSet) set(words []string) {
	k.mu.Lock()
	k.words = words
	k.mu.Unlock()
}

// debounceDelay coalesces bursts of write events on the keyword file.
const debounceDelay = 500 * time.Millisecond

// KeywordWatcher reloads the keyword set when the configured file
// changes. Reload failures keep the previous set; the policy never
// runs without keywords.
type KeywordWatcher struct {
	path    string
	set     *keywordSet
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// newKeywordWatcher creates a watcher for path feeding set.
// The file's parent directory is watched so rename-based atomic writes
// are observed too.
func newKeywordWatcher(path string, set *keywordSet, logger *slog.Logger) (*KeywordWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &KeywordWatcher{
		path:    path,
		set:     set,
		watcher: fsw,
		logger:  logger,
	}, nil
}

// close releases the underlying watch. Only needed when run was never
// started; run closes the watch itself on cancellation.
func (w *KeywordWatcher) close() {
	_ = w.watcher.Close()
}

// run processes watch events until the context is cancelled.
func (w *KeywordWatcher) run(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Keyword file watch error", "error", err)

		case <-reload:
			w.reload()
		}
	}
}

// reload reads the keyword file and swaps the set.
func (w *KeywordWatcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("Failed to read keyword file, keeping current set",
			"path", w.path,
			"error", err)
		return
	}

	keywords := ParseKeywords(string(data))
	w.set.set(keywords)
	w.logger.Info("Reloaded approved keywords",
		"path", w.path,
		"count", len(keywords))
}
