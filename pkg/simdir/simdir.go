// Package simdir turns EEPROM dump files in a directory into module events.
//
// A file named <port>.bin inserts its content into that port; deleting or renaming
// it away removes the module.
package simdir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"

	"github.com/sonic-net/sonic-pmd/pkg/monitor"
)

const fileExt = ".bin"

// DefaultSettle is how long a file must stay unchanged before it is inserted.
const DefaultSettle = 100 * time.Millisecond

// Target receives the events derived from the directory.
type Target interface {
	HasPort(name string) bool
	Insert(ctx context.Context, name string, src monitor.ImageSource) (monitor.Outcome, error)
	Remove(ctx context.Context, name string) (monitor.Outcome, error)
}

// Watcher watches one directory.
type Watcher struct {
	dir    string
	target Target
	settle time.Duration

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New returns a watcher for dir. Call Start to begin watching.
func New(dir string, target Target, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:      dir,
		target:   target,
		settle:   settle,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}
}

// PortOf returns the port a dump file stands for, or "" when the name does not follow
// the <port>.bin convention.
func PortOf(path string) string {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, fileExt) || strings.HasPrefix(base, ".") {
		return ""
	}
	return strings.TrimSuffix(base, fileExt)
}

// Start inserts the dumps already present and watches for changes.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create simulation watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch simulation directory %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to list simulation directory %s: %w", w.dir, err)
	}
	w.watcher = watcher
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		w.insert(ctx, filepath.Join(w.dir, e.Name()))
	}

	go w.run(ctx)
	glog.V(1).Infof("Started simulation monitoring on directory: %s", w.dir)
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		if w.watcher != nil {
			w.watcher.Close()
			<-w.done
		}
		w.mu.Lock()
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
		glog.V(1).Info("Stopped simulation monitoring")
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if PortOf(event.Name) == "" {
				continue
			}
			glog.V(2).Infof("Simulation file event: %v", event)

			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.cancel(event.Name)
				w.remove(ctx, event.Name)
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.schedule(ctx, event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			glog.Errorf("Simulation watcher error: %v", err)
		}
	}
}

// schedule inserts path once it has not been written to for the settle period.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.insert(ctx, path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) insert(ctx context.Context, path string) {
	port := PortOf(path)
	if port == "" || !w.target.HasPort(port) {
		glog.V(2).Infof("Ignoring simulation file %s", path)
		return
	}
	if _, err := w.target.Insert(ctx, port, monitor.FileSource(path)); err != nil {
		glog.Errorf("%s: simulated insert of %s failed: %v", port, path, err)
	}
}

func (w *Watcher) remove(ctx context.Context, path string) {
	port := PortOf(path)
	if !w.target.HasPort(port) {
		return
	}
	if _, err := w.target.Remove(ctx, port); err != nil {
		glog.Errorf("%s: simulated removal failed: %v", port, err)
	}
}
