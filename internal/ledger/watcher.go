package ledger

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of filesystem events a single sqlite
// commit produces into one subscriber notification.
const watchDebounce = 200 * time.Millisecond

// Watch observes the ledger database file for writes made by sibling
// processes and notifies subscribers so they reload their view. The last
// writer wins; subscribers are expected to re-query rather than merge.
// Returns a stop function. For in-memory stores Watch is a no-op.
func (l *Ledger) Watch() (stop func(), err error) {
	path := l.store.Path()
	if path == "" {
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating ledger watcher: %w", err)
	}

	// Watch the directory rather than the file: sqlite in WAL mode
	// writes through -wal and -shm siblings, and editors of the main
	// file may replace it wholesale.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching ledger directory %s: %w", dir, err)
	}

	base := filepath.Base(path)
	done := make(chan struct{})

	go func() {
		var pending *time.Timer
		var pendingC <-chan time.Time

		for {
			select {
			case <-done:
				if pending != nil {
					pending.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasPrefix(filepath.Base(ev.Name), base) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
					continue
				}
				if pending == nil {
					pending = time.NewTimer(watchDebounce)
					pendingC = pending.C
				} else {
					pending.Reset(watchDebounce)
				}
			case <-pendingC:
				pending = nil
				pendingC = nil
				l.notifySubscribers()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if l.logger != nil {
					l.logger.Printf("ledger: watcher error: %v", err)
				}
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
