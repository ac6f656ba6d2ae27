package haste

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxJobAttempts bounds the retry loop for a single job (section 4.4,
// "transient worker failure"): a first attempt plus up to 3 retries. A job
// that still errors after this many attempts is reported as a permanent
// failure.
const maxJobAttempts = 4

// JobFunc does the actual per-file work (extraction, hashing, ...). It
// receives the job's path and must be safe to call concurrently with other
// invocations of itself.
type JobFunc func(ctx context.Context, path string) (any, error)

// JobResult is one path's outcome, tagged with the job ID assigned when it
// was scheduled, used for log correlation across retries.
type JobResult struct {
	ID    string
	Path  string
	Value any
	Err   error
}

// WorkerPool runs a JobFunc over a list of paths with bounded concurrency.
// Grounded on the errgroup+semaphore batch pattern in indexFiles/indexBatch,
// generalized from DB-batch indexing to the haste worker-pipeline shape in
// section 4.4: one job per file, explicit retry, an in-band escape hatch.
type WorkerPool struct {
	maxWorkers  int
	forceInBand bool
}

// NewWorkerPool builds a pool. maxWorkers <= 1 or forceInBand true both
// collapse to sequential, in-process execution - the "in-band" mode the
// spec calls for when ForceInBand is set or only one CPU is available.
func NewWorkerPool(maxWorkers int, forceInBand bool) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{maxWorkers: maxWorkers, forceInBand: forceInBand}
}

// Run executes fn for every path, honoring ctx cancellation, and returns one
// JobResult per path, in the same order as paths (the jobs themselves run
// concurrently). A
// per-job error does not abort the other jobs: a Snapshot build must always
// see every file's outcome so it can decide which to drop versus abort on
// (section 4.5).
func (p *WorkerPool) Run(ctx context.Context, paths []string, fn JobFunc) ([]JobResult, error) {
	if p.forceInBand || p.maxWorkers == 1 {
		return p.runInBand(ctx, paths, fn)
	}

	results := make([]JobResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.maxWorkers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			results[i] = p.runWithRetry(gctx, path, fn)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (p *WorkerPool) runInBand(ctx context.Context, paths []string, fn JobFunc) ([]JobResult, error) {
	results := make([]JobResult, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results[i] = p.runWithRetry(ctx, path, fn)
	}
	return results, nil
}

func (p *WorkerPool) runWithRetry(ctx context.Context, path string, fn JobFunc) JobResult {
	id := uuid.NewString()
	var last JobResult
	for attempt := 1; attempt <= maxJobAttempts; attempt++ {
		value, err := fn(ctx, path)
		last = JobResult{ID: id, Path: path, Value: value, Err: err}
		if err == nil || !isRetryable(err) {
			return last
		}
	}
	return last
}

// isRetryable reports whether a job error is worth another attempt.
// Context cancellation and deadline errors are never retried: retrying
// them would just spin until the same cancellation fires again.
func isRetryable(err error) bool {
	return err != context.Canceled && err != context.DeadlineExceeded
}
