// Package worker implements the worker pool / scheduler (C8): a
// fixed-size pool that drains the enumerator lazily, dispatches each item
// to exactly one worker, and isolates per-item failures from fatal ones.
// It is a direct generalization of internal/chanworker's
// (bounded worker pool over a buffered channel) onto golang.org/x/sync's
// errgroup, which gives the pool first-class first-error propagation and
// context cancellation without chanworker's hand-rolled done-channel
// fan-in.
package worker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Fatal wraps an error that must abort the whole run (tmp dir unwritable,
// no hash algorithm available, ...), as opposed to a per-item failure
// that the pool logs and continues past.
type Fatal struct {
	Err error
}

func (f *Fatal) Error() string { return f.Err.Error() }
func (f *Fatal) Unwrap() error { return f.Err }

// AsFatal wraps err as a Fatal, for handlers that need to abort the run.
func AsFatal(err error) error {
	if err == nil {
		return nil
	}
	return &Fatal{Err: err}
}

// ItemHandler processes one work item. A non-nil, non-Fatal error is
// logged by Run's caller via onItemError and the run continues; an error
// satisfying errors.As(*Fatal) aborts the pool.
type ItemHandler func(ctx context.Context, workerID int, item string) error

// Run drains items with a fixed pool of `jobs` goroutines, one work item
// per worker turn, never processing the same item twice. It isolates
// per-item failures (reported via onItemError) from fatal ones: the
// first Fatal error cancels ctx for every other worker and is returned;
// a pool drained to completion without a Fatal error returns nil.
func Run(ctx context.Context, jobs int, items <-chan string, handle ItemHandler, onItemError func(item string, err error)) error {
	if jobs < 1 {
		jobs = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < jobs; w++ {
		workerID := w
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case item, ok := <-items:
					if !ok {
						return nil
					}
					if err := handle(gctx, workerID, item); err != nil {
						var fatal *Fatal
						if errors.As(err, &fatal) {
							return fatal
						}
						onItemError(item, err)
					}
				}
			}
		})
	}
	return g.Wait()
}
