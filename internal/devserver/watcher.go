package devserver

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"overseer/internal/logging"
)

const maxWatchedDirs = 1000

// fileWatcher watches source files under the project root and fires a
// single callback after changes have settled (debounced). It exists only
// as the crash-recovery fallback: once it fires it is done.
type fileWatcher struct {
	fs         *fsnotify.Watcher
	root       string
	extensions map[string]struct{}
	ignoreDirs map[string]struct{}
	debounce   time.Duration
	onChange   func()
	timer      *time.Timer
	mu         sync.Mutex
	fired      bool
	done       chan struct{}
	stopOnce   sync.Once
	logger     logging.Logger
}

type watchConfig struct {
	Root       string
	Extensions []string
	IgnoreDirs []string
	Debounce   time.Duration
}

func newFileWatcher(cfg watchConfig, onChange func(), logger logging.Logger) (*fileWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	extensions := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}
	ignoreDirs := make(map[string]struct{}, len(cfg.IgnoreDirs))
	for _, dir := range cfg.IgnoreDirs {
		ignoreDirs[dir] = struct{}{}
	}
	w := &fileWatcher{
		fs:         fs,
		root:       cfg.Root,
		extensions: extensions,
		ignoreDirs: ignoreDirs,
		debounce:   cfg.Debounce,
		onChange:   onChange,
		done:       make(chan struct{}),
		logger:     logger,
	}
	if err := w.addDirectories(); err != nil {
		_ = fs.Close()
		return nil, err
	}
	go w.loop()
	return w, nil
}

func (w *fileWatcher) addDirectories() error {
	watched := 0
	return filepath.Walk(w.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if !info.IsDir() {
			return nil
		}
		if watched >= maxWatchedDirs {
			return filepath.SkipDir
		}
		if _, ignored := w.ignoreDirs[info.Name()]; ignored && path != w.root {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return nil // individual directory failures are not fatal
		}
		watched++
		return nil
	})
}

func (w *fileWatcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.bump()
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *fileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	if _, ok := w.extensions[ext]; !ok {
		return false
	}
	for part := range w.ignoreDirs {
		if strings.Contains(event.Name, string(filepath.Separator)+part+string(filepath.Separator)) {
			return false
		}
	}
	return true
}

// bump restarts the debounce window; the callback fires once after the
// burst of writes settles.
func (w *fileWatcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fired {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.fired {
			w.mu.Unlock()
			return
		}
		w.fired = true
		w.mu.Unlock()
		w.logger.Info("watch_change_detected", logging.F("root", w.root))
		w.onChange()
	})
}

func (w *fileWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		w.fired = true
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		_ = w.fs.Close()
	})
}
