package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// stageTracker holds the name of whichever stage is currently running, so
// the progress emitter goroutine can read it without synchronizing with the
// pipeline goroutine's actual stage-by-stage control flow.
type stageTracker struct {
	current atomic.Value
}

func newStageTracker() *stageTracker {
	t := &stageTracker{}
	t.current.Store(StageRewrite)
	return t
}

func (t *stageTracker) set(stage StageName) {
	t.current.Store(stage)
}

func (t *stageTracker) get() StageName {
	return t.current.Load().(StageName)
}

// startProgressEmitter launches a goroutine that calls onProgress with the
// tracker's current stage and the cumulative time elapsed since the pipeline
// started, every cfg.ProgressInterval, stopping cleanly when the returned
// stop function runs or ctx is cancelled. This is the pipeline's only point
// of intra-request concurrency: progress emission running alongside the
// sequential stage work, joined at the caller's defer.
func (e *Executor) startProgressEmitter(ctx context.Context, tracker *stageTracker, onProgress func(stage StageName, elapsed time.Duration)) func() {
	if onProgress == nil || e.cfg.ProgressInterval <= 0 {
		return func() {}
	}

	start := time.Now()
	emitCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(emitCtx)

	g.Go(func() error {
		ticker := time.NewTicker(e.cfg.ProgressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				onProgress(tracker.get(), time.Since(start))
			}
		}
	})

	return func() {
		cancel()
		_ = g.Wait()
	}
}
