package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Report summarizes a batched stage: how many items landed and what the
// per-item failures were. Item failures never abort a stage.
type Report struct {
	Succeeded int
	Failed    []error
}

// FailedCount returns the number of failed items.
func (r Report) FailedCount() int { return len(r.Failed) }

func (r *Report) merge(other Report) {
	r.Succeeded += other.Succeeded
	r.Failed = append(r.Failed, other.Failed...)
}

// forEachBatch runs work over items in sequential waves of at most limit
// concurrent calls. A wave fully drains before the next one starts, so at
// no point are more than limit work calls in flight. Per-item errors are
// collected into the report; only context cancellation aborts the walk,
// checked between waves and again before each dispatch.
func forEachBatch[T any](ctx context.Context, limit int, items []T, work func(context.Context, T) error, after func(wave Report)) (Report, error) {
	if limit < 1 {
		limit = 1
	}
	var total Report
	for start := 0; start < len(items); start += limit {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		end := start + limit
		if end > len(items) {
			end = len(items)
		}

		var (
			mu   sync.Mutex
			wave Report
		)
		g, wctx := errgroup.WithContext(ctx)
		for _, item := range items[start:end] {
			g.Go(func() error {
				if err := wctx.Err(); err != nil {
					return err
				}
				if err := work(wctx, item); err != nil {
					mu.Lock()
					wave.Failed = append(wave.Failed, err)
					mu.Unlock()
					return nil
				}
				mu.Lock()
				wave.Succeeded++
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			total.merge(wave)
			return total, err
		}
		total.merge(wave)
		if after != nil {
			after(wave)
		}
	}
	return total, nil
}
