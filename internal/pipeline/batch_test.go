package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"distillery/internal/tester"
)

func TestForEachBatchRespectsConcurrencyLimit(t *testing.T) {
	const limit = 3
	items := make([]int, 20)

	var inFlight, peak atomic.Int32
	work := func(_ context.Context, _ int) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	report, err := forEachBatch(context.Background(), limit, items, work, nil)
	tester.NoErr(t, err)
	tester.Eq(t, report.Succeeded, 20)
	tester.True(t, peak.Load() <= limit, "in-flight work must never exceed the limit")
}

func TestForEachBatchDrainsWaveBeforeNext(t *testing.T) {
	var waves []Report
	work := func(_ context.Context, i int) error {
		if i%2 == 1 {
			return errors.New("odd item")
		}
		return nil
	}

	report, err := forEachBatch(context.Background(), 2, []int{0, 1, 2, 3, 4}, work, func(wave Report) {
		waves = append(waves, wave)
	})
	tester.NoErr(t, err)
	tester.Eq(t, len(waves), 3)
	tester.Eq(t, report.Succeeded, 3)
	tester.Eq(t, report.FailedCount(), 2)
}

func TestForEachBatchCollectsItemFailures(t *testing.T) {
	boom := errors.New("boom")
	work := func(_ context.Context, i int) error {
		if i == 2 {
			return boom
		}
		return nil
	}

	report, err := forEachBatch(context.Background(), 4, []int{1, 2, 3}, work, nil)
	tester.NoErr(t, err, "item failures must not become a stage error")
	tester.Eq(t, report.Succeeded, 2)
	tester.Eq(t, report.FailedCount(), 1)
	tester.True(t, errors.Is(report.Failed[0], boom))
}

func TestForEachBatchStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	work := func(_ context.Context, i int) error {
		if calls.Add(1) == 1 {
			cancel()
		}
		return nil
	}

	_, err := forEachBatch(ctx, 1, make([]int, 10), work, nil)
	tester.Err(t, err)
	tester.True(t, errors.Is(err, context.Canceled))
	tester.True(t, calls.Load() < 10, "cancellation must cut the walk short")
}

func TestForEachBatchEmptyItems(t *testing.T) {
	report, err := forEachBatch(context.Background(), 5, nil, func(context.Context, int) error {
		t.Fatal("work must not run for empty input")
		return nil
	}, nil)
	tester.NoErr(t, err)
	tester.Eq(t, report.Succeeded, 0)
	tester.Eq(t, report.FailedCount(), 0)
}
