package haste

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// changeInterval is the coalescing window for filesystem events before a
// frame is extracted and published (section 4.9, CHANGE_INTERVAL).
const changeInterval = 30 * time.Millisecond

// watcherReadyTimeout bounds how long Watch waits for its first Snapshot
// to be ready before giving up (section 4.9, MAX_WAIT_TIME).
const watcherReadyTimeout = 240 * time.Second

// WatchEvent is delivered to subscribers after each coalesced frame is
// applied and published.
type WatchEvent struct {
	Snapshot *Snapshot
	Changed  []string
	Removed  []string
}

// Watcher keeps a Snapshot live against an fsnotify-backed event stream.
// Entering watch mode forces ThrowOnModuleCollision off and RetainAllFiles
// on (section 4.9): a long-running watch must survive a transient
// collision, and node_modules paths are no longer ignored, so changes there
// stay observable. Events for files outside the configured extensions are
// still dropped. Grounded on fileWatcher's debounce-and-fire loop in
// internal/watcher/file_watcher.go, adapted from a callback-with-paths
// shape to one that republishes an immutable Snapshot per frame.
type Watcher struct {
	cfg     *Config
	cache   *CacheStore
	extract *Extractor
	fsw     *fsnotify.Watcher

	mu        sync.RWMutex
	snap      *Snapshot
	listeners []chan WatchEvent

	pending   map[string]bool
	pendingMu sync.Mutex

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher prepares a Watcher from the initial build's Snapshot. Build
// the Snapshot with Builder.Build before calling this: Watch only takes
// over from there.
func NewWatcher(cfg *Config, cache *CacheStore, initial *Snapshot) (*Watcher, error) {
	cfg.ThrowOnModuleCollision = false
	cfg.RetainAllFiles = true

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}

	w := &Watcher{
		cfg:     cfg,
		cache:   cache,
		extract: NewExtractor(cfg),
		fsw:     fsw,
		snap:    initial,
		pending: make(map[string]bool),
		done:    make(chan struct{}),
	}

	for _, root := range cfg.Roots {
		if err := w.watchTreeRecursive(root); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", root, err)
		}
	}

	return w, nil
}

// Start begins the event loop. ctx cancellation stops it; Stop can also be
// used directly.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.loop(ctx)
}

// Snapshot returns the most recently published Snapshot. Callers must
// treat it as read-only: Watcher publishes a freshly cloned Snapshot on
// every frame rather than mutating a shared one in place.
func (w *Watcher) Snapshot() *Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snap
}

// Subscribe registers ch to receive a WatchEvent after each applied frame.
// Delivery is best-effort: a slow subscriber with a full channel misses a
// frame rather than blocking the watcher.
func (w *Watcher) Subscribe(ch chan WatchEvent) {
	w.mu.Lock()
	w.listeners = append(w.listeners, ch)
	w.mu.Unlock()
}

// Stop shuts the watcher down. Idempotent: a second call is a no-op.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.done
		} else {
			close(w.done)
		}
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	var timer *time.Timer
	frameCh := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			isDir := false
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil {
					isDir = info.IsDir()
					if isDir {
						if err := w.watchTreeRecursive(ev.Name); err != nil {
							log.Printf("haste: watch new directory %s: %v", ev.Name, err)
						}
					}
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Section 4.9 step 1: drop directory events and events whose
			// extension is not configured.
			if isDir {
				continue
			}
			if len(w.cfg.Extensions) > 0 && !hasConfiguredExtension(filepathToSlash(ev.Name), w.cfg.Extensions) {
				continue
			}

			w.pendingMu.Lock()
			w.pending[ev.Name] = true
			w.pendingMu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(changeInterval, func() {
				select {
				case frameCh <- struct{}{}:
				default:
				}
			})

		case <-frameCh:
			w.applyFrame()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("haste: watch error: %v", err)
		}
	}
}

// applyFrame drains the pending path set, re-extracts every one of them
// in-band (watch-mode frames are small; a worker pool would only add
// overhead), and publishes a freshly cloned Snapshot. Copy-on-write keeps
// any reader holding the previous Snapshot from seeing a half-updated one.
func (w *Watcher) applyFrame() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}

	w.mu.RLock()
	next := w.snap.CloneShallow()
	w.mu.RUnlock()

	dups := NewDuplicateRegistry(next, w.cfg.Platforms, w.cfg.ThrowOnModuleCollision)
	mocks := NewMockRegistry(next.Mocks, w.cfg.ThrowOnModuleCollision)

	changed := make([]string, 0, len(paths))
	removed := make([]string, 0)

	for _, absPath := range paths {
		relPath, err := w.relativize(absPath)
		if err != nil {
			continue
		}
		if NewIgnoreFilter(w.cfg).ShouldIgnore(relPath, absPath) {
			continue
		}

		rec, err := w.extract.Extract(context.Background(), relPath, next.Files[relPath])
		if err != nil {
			log.Printf("haste: extract %s: %v", relPath, err)
			continue
		}
		if rec.Removed {
			w.forget(next, dups, mocks, relPath)
			removed = append(removed, relPath)
			continue
		}

		next.Files[relPath] = rec.Entry
		if rec.IsMock {
			_ = mocks.SetMock(rec.MockKey, relPath)
		} else if rec.HasteID != "" {
			_ = dups.SetModule(rec.HasteID, relPath, rec.Kind)
		}
		changed = append(changed, relPath)
	}

	w.mu.Lock()
	w.snap = next
	listeners := append([]chan WatchEvent(nil), w.listeners...)
	w.mu.Unlock()

	if err := w.cache.Write(next); err != nil {
		log.Printf("haste: persist snapshot after watch frame: %v", err)
	}

	event := WatchEvent{Snapshot: next, Changed: changed, Removed: removed}
	for _, ch := range listeners {
		select {
		case ch <- event:
		default:
		}
	}
}

func (w *Watcher) forget(snap *Snapshot, dups *DuplicateRegistry, mocks *MockRegistry, relPath string) {
	delete(snap.Files, relPath)
	for id, byPlatform := range snap.Modules {
		p := Platform(relPath, w.cfg.Platforms)
		if winner, ok := byPlatform[p]; ok && winner.Path == relPath {
			delete(byPlatform, p)
			if len(byPlatform) == 0 {
				delete(snap.Modules, id)
			}
		}
	}
	for id := range snap.Duplicates {
		dups.RecoverDuplicates(relPath, id)
	}
	mocks.RemoveMock(MockNameFromPath(relPath), relPath)
}

func (w *Watcher) relativize(absPath string) (string, error) {
	for _, root := range w.cfg.Roots {
		if rel, err := filepath.Rel(root, absPath); err == nil && !filepathHasDotDot(rel) {
			return filepathToSlash(rel), nil
		}
	}
	return "", fmt.Errorf("path %s not under any watched root", absPath)
}

func filepathHasDotDot(p string) bool {
	return len(p) >= 2 && p[0] == '.' && p[1] == '.'
}

func (w *Watcher) watchTreeRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("haste: walk %s: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if vcsDirRe.MatchString(filepathToSlash(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("haste: watch directory %s: %v", path, err)
		}
		return nil
	})
}

// WaitReady blocks until the Watcher has an initial Snapshot or
// watcherReadyTimeout elapses, matching the MAX_WAIT_TIME guard on the
// first watch-mode build in section 4.9.
func WaitReady(ctx context.Context, builder *Builder) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, watcherReadyTimeout)
	defer cancel()

	type result struct {
		snap *Snapshot
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		snap, err := builder.Build(ctx)
		resCh <- result{snap, err}
	}()

	select {
	case res := <-resCh:
		return res.snap, res.err
	case <-ctx.Done():
		return nil, &WatcherReadyTimeoutError{Root: builder.cfg.RootDir}
	}
}
