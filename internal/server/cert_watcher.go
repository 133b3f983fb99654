package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"atscheck/internal/errors"
)

// CertWatcher watches certificate files for changes and triggers reloads
type CertWatcher struct {
	mu sync.Mutex

	files       []string
	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	reloadCallback func()
	logger         *errors.Logger

	running bool
}

// NewCertWatcher creates a watcher over the given files. Empty paths are
// ignored. reloadCallback runs on the watcher goroutine once changes settle.
func NewCertWatcher(files []string, debounceDelay time.Duration, reloadCallback func(), logger *errors.Logger) *CertWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	return &CertWatcher{
		files:          slices.DeleteFunc(slices.Clone(files), func(f string) bool { return f == "" }),
		lastModTime:    make(map[string]time.Time),
		debounceDelay:  debounceDelay,
		stopChan:       make(chan struct{}),
		reloadChan:     make(chan struct{}, 1),
		reloadCallback: reloadCallback,
		logger:         logger,
	}
}

// Start begins watching. Both the files and their directories are watched
// so atomic rename-style replacements are seen.
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	cw.fsWatcher = watcher

	if err := cw.updateModTimes(); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to get initial file modification times: %w", err)
	}

	dirs := make(map[string]bool)
	for _, file := range cw.files {
		if err := watcher.Add(file); err != nil && !os.IsNotExist(err) {
			cw.logger.Warn("Failed to watch certificate file", "file", file, "error", err)
		}
		dirs[filepath.Dir(file)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			cw.logger.Warn("Failed to watch certificate directory", "directory", dir, "error", err)
		}
	}

	cw.running = true
	go cw.watchLoop()

	cw.logger.Info("Certificate file watcher started",
		"files", cw.files,
		"debounce_delay", cw.debounceDelay)
	return nil
}

// Stop stops the certificate file watcher
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return nil
	}

	close(cw.stopChan)
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.running = false

	if err := cw.fsWatcher.Close(); err != nil {
		cw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}

	cw.logger.Info("Certificate file watcher stopped")
	return nil
}

func (cw *CertWatcher) updateModTimes() error {
	for _, file := range cw.files {
		if stat, err := os.Stat(file); err == nil {
			cw.lastModTime[file] = stat.ModTime()
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat file %s: %w", file, err)
		}
	}
	return nil
}

// hasFileChanged reports a modification or deletion since the last check.
func (cw *CertWatcher) hasFileChanged(file string) bool {
	stat, err := os.Stat(file)
	if err != nil {
		if _, exists := cw.lastModTime[file]; exists && os.IsNotExist(err) {
			delete(cw.lastModTime, file)
			return true
		}
		return false
	}

	lastMod, exists := cw.lastModTime[file]
	if !exists || !stat.ModTime().Equal(lastMod) {
		cw.lastModTime[file] = stat.ModTime()
		return true
	}
	return false
}

func (cw *CertWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-cw.fsWatcher.Events:
			if !ok {
				return
			}
			if cw.shouldProcessEvent(event) {
				cw.scheduleReload()
			}

		case err, ok := <-cw.fsWatcher.Errors:
			if !ok {
				return
			}
			cw.logger.LogError(err, "File watcher error")

		case <-cw.reloadChan:
			if cw.hasAnyFileChanged() {
				cw.logger.Info("Certificate files changed, triggering reload")
				cw.reloadCallback()
			}

		case <-cw.stopChan:
			return
		}
	}
}

// shouldProcessEvent keeps write, create and rename events on watched files.
func (cw *CertWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	watched := slices.ContainsFunc(cw.files, func(file string) bool {
		return filepath.Clean(event.Name) == filepath.Clean(file)
	})
	return watched && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// hasAnyFileChanged checks every file so all stored mod times stay current.
func (cw *CertWatcher) hasAnyFileChanged() bool {
	changed := false
	for _, file := range cw.files {
		if cw.hasFileChanged(file) {
			changed = true
		}
	}
	return changed
}

// scheduleReload (re)arms the debounce timer.
func (cw *CertWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}

	cw.debounceTimer = time.AfterFunc(cw.debounceDelay, func() {
		select {
		case cw.reloadChan <- struct{}{}:
		default:
			// reload already pending
		}
	})
}

// IsRunning returns whether the watcher is currently running
func (cw *CertWatcher) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.running
}

// GetWatchedFiles returns the list of files being watched
func (cw *CertWatcher) GetWatchedFiles() []string {
	return slices.Clone(cw.files)
}
