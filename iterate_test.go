package flume

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slicePull(elems []int) Pull[int] {
	next := 0
	return func() (int, bool) {
		if next == len(elems) {
			return 0, false
		}
		elem := elems[next]
		next++
		return elem, true
	}
}

func TestIterateAppliesWorkToEveryElement(t *testing.T) {
	t.Parallel()

	elems := []int{1, 2, 3, 4, 5, 6, 7, 8}
	pool := NewPool[noSlot](3)

	var got []int
	err := Iterate(context.Background(), pool, slicePull(elems),
		func(_ context.Context, _ noSlot, v int) (int, error) {
			return v * 10, nil
		},
		func(_ int, res int, err error) bool {
			require.NoError(t, err)
			got = append(got, res)
			return true
		})
	require.NoError(t, err)

	sort.Ints(got)
	require.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80}, got)
}

func TestIterateConcurrencyBound(t *testing.T) {
	t.Parallel()

	const limit = 3
	const total = 60

	elems := make([]int, total)
	pool := NewPool[noSlot](limit)

	var running, maxRunning atomic.Int32
	err := Iterate(context.Background(), pool, slicePull(elems),
		func(_ context.Context, _ noSlot, _ int) (int, error) {
			curr := running.Add(1)
			for {
				prev := maxRunning.Load()
				if curr <= prev || maxRunning.CompareAndSwap(prev, curr) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return 0, nil
		},
		func(int, int, error) bool { return true })
	require.NoError(t, err)
	require.LessOrEqual(t, maxRunning.Load(), int32(limit))
}

func TestIterateCancellationStopsWork(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewPool[noSlot](2)
	startedCh := make(chan struct{}, 16)

	var pulls, started, pushes atomic.Int32
	pull := func() (int, bool) {
		return int(pulls.Add(1)), true
	}
	work := func(ctx context.Context, _ noSlot, _ int) (int, error) {
		started.Add(1)
		startedCh <- struct{}{}
		<-ctx.Done()
		return 0, ctx.Err()
	}
	push := func(int, int, error) bool {
		pushes.Add(1)
		return true
	}

	errCh := make(chan error, 1)
	go func() { errCh <- Iterate(ctx, pool, pull, work, push) }()

	<-startedCh
	<-startedCh
	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)
	assert.EqualValues(t, 2, started.Load(), "no call may start after cancellation")
	assert.EqualValues(t, 0, pushes.Load(), "collector must stop pushing once cancelled")
	assert.LessOrEqual(t, pulls.Load(), int32(3), "at most one pulled element may be in hand-off")
}

func TestIterateRejectionReturnsNilAndDrains(t *testing.T) {
	t.Parallel()

	elems := make([]int, 100)
	pool := NewPool[noSlot](4)

	var pushes int
	err := Iterate(context.Background(), pool, slicePull(elems),
		func(ctx context.Context, _ noSlot, v int) (int, error) {
			return v, nil
		},
		func(int, int, error) bool {
			pushes++
			return false
		})

	require.NoError(t, err, "rejection is a consumer decision, not an engine error")
	require.Equal(t, 1, pushes)
}

func TestIteratePanicConvertedToError(t *testing.T) {
	t.Parallel()

	pool := NewPool[noSlot](2)

	var failed, fine int
	err := Iterate(context.Background(), pool, slicePull([]int{1, 2, 3, 4}),
		func(_ context.Context, _ noSlot, v int) (int, error) {
			if v == 3 {
				panic("kaboom")
			}
			return v, nil
		},
		func(_ int, _ int, err error) bool {
			if err != nil {
				require.ErrorContains(t, err, "panic recovered: kaboom")
				failed++
				return true
			}
			fine++
			return true
		})
	require.NoError(t, err)
	require.Equal(t, 1, failed)
	require.Equal(t, 3, fine)
}

func TestIterateSlotLifecycle(t *testing.T) {
	t.Parallel()

	const slots = 3

	modes := []struct {
		name string
		run  func(t *testing.T, pool *Pool[*int])
	}{
		{name: "exhausted", run: func(t *testing.T, pool *Pool[*int]) {
			err := Iterate(context.Background(), pool, slicePull(make([]int, 20)),
				func(_ context.Context, counter *int, v int) (int, error) {
					*counter++
					return v, nil
				},
				func(int, int, error) bool { return true })
			require.NoError(t, err)
		}},
		{name: "rejected", run: func(t *testing.T, pool *Pool[*int]) {
			err := Iterate(context.Background(), pool, slicePull(make([]int, 20)),
				func(_ context.Context, counter *int, v int) (int, error) {
					*counter++
					return v, nil
				},
				func(int, int, error) bool { return false })
			require.NoError(t, err)
		}},
		{name: "cancelled", run: func(t *testing.T, pool *Pool[*int]) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := Iterate(ctx, pool, slicePull(make([]int, 20)),
				func(_ context.Context, counter *int, v int) (int, error) {
					*counter++
					return v, nil
				},
				func(int, int, error) bool { return true })
			require.ErrorIs(t, err, context.Canceled)
		}},
	}

	for _, mode := range modes {
		mode := mode
		t.Run(mode.name, func(t *testing.T) {
			t.Parallel()

			var inits, releases atomic.Int32
			pool := NewPool(slots,
				WithSlotInit(func(id int) *int {
					inits.Add(1)
					return new(int)
				}),
				WithSlotRelease(func(id int, counter *int) {
					releases.Add(1)
				}),
			)

			mode.run(t, pool)
			require.EqualValues(t, slots, inits.Load())
			require.EqualValues(t, slots, releases.Load(), "each slot released exactly once")
		})
	}
}

func TestIterateSlotStateIsReusedSerially(t *testing.T) {
	t.Parallel()

	const total = 50

	var sum atomic.Int32
	pool := NewPool(2,
		WithSlotInit(func(id int) *int { return new(int) }),
		WithSlotRelease(func(id int, counter *int) {
			// Per-slot counters are only ever touched by their slot, so
			// plain increments must add up across the pool.
			sum.Add(int32(*counter))
		}),
	)

	err := Iterate(context.Background(), pool, slicePull(make([]int, total)),
		func(_ context.Context, counter *int, v int) (int, error) {
			*counter++
			return v, nil
		},
		func(int, int, error) bool { return true })
	require.NoError(t, err)
	require.EqualValues(t, total, sum.Load())
}

func TestIterateBackpressureBoundsCompletedWork(t *testing.T) {
	t.Parallel()

	const limit = 2

	pool := NewPool[noSlot](limit)
	release := make(chan struct{})
	blocked := make(chan struct{})

	var completed, delivered atomic.Int32
	errCh := make(chan error, 1)
	go func() {
		errCh <- Iterate(context.Background(), pool, slicePull(make([]int, 64)),
			func(_ context.Context, _ noSlot, v int) (int, error) {
				completed.Add(1)
				return v, nil
			},
			func(int, int, error) bool {
				if delivered.Add(1) == 1 {
					close(blocked)
					<-release
				}
				return true
			})
	}()

	<-blocked
	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, completed.Load()-delivered.Load(), int32(limit),
		"a stalled sink may leave at most pool-size completions undelivered")

	close(release)
	require.NoError(t, <-errCh)
	require.EqualValues(t, 64, delivered.Load())
}

func TestIterateCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool[noSlot](4)
	var pulls, pushes int
	err := Iterate(ctx, pool,
		func() (int, bool) {
			pulls++
			return 0, true
		},
		func(_ context.Context, _ noSlot, v int) (int, error) { return v, nil },
		func(int, int, error) bool {
			pushes++
			return true
		})

	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, pulls, "nothing may be pulled once a cause is recorded")
	require.Zero(t, pushes)
}

func TestIterateNilPoolPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		_ = Iterate[noSlot](context.Background(), nil,
			slicePull(nil),
			func(_ context.Context, _ noSlot, v int) (int, error) { return v, nil },
			func(int, int, error) bool { return true })
	})
}

func TestNewPoolPanicsForNonPositiveSize(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { NewPool[noSlot](0) })
}

func TestCauseString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.Equal(t, "unknown", causeUnknown.String())
	assert.True(t, errors.Is(ErrRejected, ErrRejected))
}
