package main

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RosterWatcher watches a single roster file and calls onChange once the
// file has been quiet for the debounce delay.
// It watches the parent directory so rename-over saves are seen.
type RosterWatcher struct {
	watcher  *fsnotify.Watcher
	onChange func(path string)
	delay    time.Duration
	path     string
	dir      string
	timer    *time.Timer
	done     chan struct{}
	mu       sync.Mutex
	closed   bool
}

// NewRosterWatcher creates a watcher and starts its event loop
func NewRosterWatcher(delay time.Duration, onChange func(path string)) (*RosterWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &RosterWatcher{
		watcher:  watcher,
		onChange: onChange,
		delay:    delay,
		done:     make(chan struct{}),
	}
	go w.handleEvents()
	return w, nil
}

// Watch replaces the watched file with path
func (w *RosterWatcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("roster watcher is closed")
	}

	if dir != w.dir {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		if w.dir != "" {
			w.watcher.Remove(w.dir)
		}
		w.dir = dir
	}
	w.stopTimerLocked()
	w.path = abs
	log.Printf("Started watching roster: %s", abs)
	return nil
}

// Unwatch stops watching the current file
func (w *RosterWatcher) Unwatch() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dir != "" && !w.closed {
		w.watcher.Remove(w.dir)
		log.Printf("Stopped watching roster: %s", w.path)
	}
	w.stopTimerLocked()
	w.path = ""
	w.dir = ""
}

// Path returns the watched file, or ""
func (w *RosterWatcher) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Close stops the watcher and waits for the event loop to exit
func (w *RosterWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.stopTimerLocked()
	w.path = ""
	w.dir = ""
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *RosterWatcher) stopTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// handleEvents processes fsnotify events
func (w *RosterWatcher) handleEvents() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.debounce(filepath.Clean(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

// debounce delays onChange until the file is stable
func (w *RosterWatcher) debounce(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || name != w.path {
		return
	}

	w.stopTimerLocked()
	path := w.path
	var timer *time.Timer
	timer = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		current := w.timer == timer && w.path == path && !w.closed
		if current {
			w.timer = nil
		}
		w.mu.Unlock()

		if current {
			w.onChange(path)
		}
	})
	w.timer = timer
}
