package haste

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BuildState is the Builder's lifecycle, section 4.8.
type BuildState int

const (
	StateIdle BuildState = iota
	StateReading
	StateCrawling
	StateExtracting
	StatePersisting
	StateDone
)

func (s BuildState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateCrawling:
		return "crawling"
	case StateExtracting:
		return "extracting"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// BuildStats summarizes one build() call, reported via ProgressReporter.OnComplete.
type BuildStats struct {
	Added     int
	Modified  int
	Deleted   int
	Unchanged int
	Duration  time.Duration
	Persisted bool
}

// Builder owns one project's Snapshot end to end: reading the cache,
// crawling for changes, dispatching extraction jobs, reconciling
// duplicates and mocks, and persisting the result. Grounded on the
// discover -> detect -> index -> persist pipeline threaded through
// indexer.Indexer.Run, generalized from a SQLite-backed index to haste's
// in-memory Snapshot plus CacheStore.
//
// build() is idempotent and memoized: a second call before Reset returns
// the same Snapshot without doing any work, matching the "Builder.build()
// is called once per process" invariant in section 4.8.
type Builder struct {
	cfg      *Config
	cache    *CacheStore
	crawler  Crawler
	pool     *WorkerPool
	extract  *Extractor
	progress ProgressReporter

	mu      sync.Mutex
	state   BuildState
	snap    *Snapshot
	built   bool
	buildMu sync.Mutex
}

// NewBuilder wires a Builder from an already-Normalize()'d Config, a
// CacheStore bound to that config's snapshot path, and a Crawler (usually
// the result of CrawlerFor). progress may be nil, which uses NoOpProgressReporter.
func NewBuilder(cfg *Config, cache *CacheStore, crawler Crawler, progress ProgressReporter) *Builder {
	if progress == nil {
		progress = NoOpProgressReporter{}
	}
	return &Builder{
		cfg:      cfg,
		cache:    cache,
		crawler:  crawler,
		pool:     NewWorkerPool(cfg.MaxWorkers, cfg.ForceInBand),
		extract:  NewExtractor(cfg),
		progress: progress,
		state:    StateIdle,
	}
}

// State returns the Builder's current lifecycle state.
func (b *Builder) State() BuildState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Builder) setState(s BuildState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// Build runs the pipeline once and memoizes the result; subsequent calls
// return the same Snapshot without re-reading, re-crawling, or
// re-extracting anything.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	b.buildMu.Lock()
	defer b.buildMu.Unlock()

	if b.built {
		return b.snap, nil
	}

	start := time.Now()

	b.setState(StateReading)
	snap := b.cache.Read()
	if b.cfg.ResetCache {
		snap = Empty()
	}

	b.setState(StateCrawling)
	b.progress.OnCrawlStart()
	changes, err := b.crawler.Crawl(ctx, snap.Files)
	if err != nil {
		b.setState(StateIdle)
		return nil, fmt.Errorf("crawl: %w", err)
	}
	b.progress.OnCrawlComplete(len(changes.Added), len(changes.Modified), len(changes.Deleted), len(changes.Unchanged))

	dups := NewDuplicateRegistry(snap, b.cfg.Platforms, b.cfg.ThrowOnModuleCollision)
	mocks := NewMockRegistry(snap.Mocks, b.cfg.ThrowOnModuleCollision)

	for _, relPath := range changes.Deleted {
		b.forgetFile(snap, dups, mocks, relPath)
	}

	toExtract := changes.NeedsExtraction()
	b.setState(StateExtracting)
	b.progress.OnExtractionStart(len(toExtract))

	results, err := b.pool.Run(ctx, toExtract, b.extract.JobFunc(snap.Files))
	if err != nil {
		b.setState(StateIdle)
		return nil, fmt.Errorf("extract: %w", err)
	}

	var collisionErr error
	for _, res := range results {
		if res.Err != nil {
			b.setState(StateIdle)
			return nil, fmt.Errorf("extract %s: %w", res.Path, res.Err)
		}
		rec, _ := res.Value.(*extractionRecord)
		if rec == nil {
			continue
		}
		if err := b.applyRecord(snap, dups, mocks, rec); err != nil {
			// A throw-on-collision error still lets every other file finish
			// extracting; only the final Snapshot is left un-persisted.
			if collisionErr == nil {
				collisionErr = err
			}
		}
		b.progress.OnFileExtracted(rec.RelPath)
	}

	changed := len(toExtract) > 0 || len(changes.Deleted) > 0 || b.cfg.ResetCache
	if changed && collisionErr == nil {
		b.setState(StatePersisting)
		b.progress.OnPersisting()
		if err := b.cache.Write(snap); err != nil {
			b.setState(StateIdle)
			return nil, fmt.Errorf("persist snapshot: %w", err)
		}
	}

	b.setState(StateDone)
	b.snap = snap
	b.built = true

	b.progress.OnComplete(BuildStats{
		Added:     len(changes.Added),
		Modified:  len(changes.Modified),
		Deleted:   len(changes.Deleted),
		Unchanged: len(changes.Unchanged),
		Duration:  time.Since(start),
		Persisted: changed && collisionErr == nil,
	})

	if collisionErr != nil {
		return snap, collisionErr
	}
	return snap, nil
}

// applyRecord folds one extractionRecord into the Snapshot under
// construction. That Snapshot is the one read from the cache, updated in
// place, so a haste-id claim is checked against Modules/Duplicates that
// still hold the bindings of unchanged files from the previous build. A file
// re-claiming the id it already owns is a no-op in SetModule, and the old
// binding of a deleted or renamed file is dropped by forgetFile before
// extraction starts.
func (b *Builder) applyRecord(snap *Snapshot, dups *DuplicateRegistry, mocks *MockRegistry, rec *extractionRecord) error {
	if rec.Removed {
		b.forgetFile(snap, dups, mocks, rec.RelPath)
		return nil
	}

	snap.Files[rec.RelPath] = rec.Entry

	if rec.IsMock {
		return mocks.SetMock(rec.MockKey, rec.RelPath)
	}

	if rec.HasteID == "" {
		return nil
	}
	return dups.SetModule(rec.HasteID, rec.RelPath, rec.Kind)
}

// forgetFile removes relPath's FileTable entry and, if it owned a haste id
// or mock key in the previous snapshot, reconciles the duplicate/mock
// registries so a lone survivor is promoted back to sole owner.
func (b *Builder) forgetFile(snap *Snapshot, dups *DuplicateRegistry, mocks *MockRegistry, relPath string) {
	entry, ok := snap.Files[relPath]
	delete(snap.Files, relPath)
	if !ok {
		return
	}

	for id, byPlatform := range snap.Modules {
		p := Platform(relPath, b.cfg.Platforms)
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

	mockKey := MockNameFromPath(relPath)
	mocks.RemoveMock(mockKey, relPath)
	_ = entry
}

// Reset clears the memoization flag, allowing a fresh Build call; used by
// the watcher after it applies an incremental update directly to the
// Snapshot rather than through the full pipeline.
func (b *Builder) Reset() {
	b.buildMu.Lock()
	b.built = false
	b.buildMu.Unlock()
}
