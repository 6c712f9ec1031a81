package journey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

func TestPollUntil(t *testing.T) {
	t.Run("should return true immediately when the predicate already holds", func(t *testing.T) {
		start := time.Now()
		ok := pollUntil(context.Background(), 50*time.Millisecond, time.Second, func(context.Context) bool {
			return true
		})
		require.True(t, ok)
		assert.Less(t, time.Since(start), 200*time.Millisecond, "a satisfied predicate must not wait out the interval")
	})

	t.Run("should not return false before the full budget has elapsed", func(t *testing.T) {
		budget := 150 * time.Millisecond
		start := time.Now()
		ok := pollUntil(context.Background(), 10*time.Millisecond, budget, func(context.Context) bool {
			return false
		})
		require.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), budget, "false must only be returned at or after the deadline")
	})

	t.Run("should pick up a predicate that flips mid-wait", func(t *testing.T) {
		flipAt := time.Now().Add(60 * time.Millisecond)
		ok := pollUntil(context.Background(), 10*time.Millisecond, time.Second, func(context.Context) bool {
			return time.Now().After(flipAt)
		})
		assert.True(t, ok)
	})

	t.Run("should stop early when the parent context dies", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ok := pollUntil(ctx, 10*time.Millisecond, time.Hour, func(context.Context) bool {
			return false
		})
		assert.False(t, ok)
	})
}

func TestWaiter(t *testing.T) {
	newWaiter := func(t *testing.T, d *fakeDriver) *Waiter {
		t.Helper()
		return NewWaiter(d, 10*time.Millisecond, zaptest.NewLogger(t))
	}

	t.Run("should satisfy on any selector of any probe set", func(t *testing.T) {
		driver := newFakeDriver()
		driver.setPresent(`[data-testid="card-container"]`)

		w := newWaiter(t, driver)
		ok := w.WaitForAny(context.Background(), 200*time.Millisecond,
			schemas.NewProbeSet("first", `#never`, `#nope`),
			schemas.NewProbeSet("second", `[data-testid="card-container"]`),
		)
		assert.True(t, ok)
	})

	t.Run("should treat probe evaluation errors as not yet satisfied", func(t *testing.T) {
		driver := newFakeDriver()
		driver.existsErr[`#flaky`] = errors.New("node detached")
		driver.setPresent(`#steady`)

		w := newWaiter(t, driver)
		ok := w.CheckAny(context.Background(), schemas.NewProbeSet("mixed", `#flaky`, `#steady`))
		assert.True(t, ok, "the errored probe must be skipped, not fatal")
	})

	t.Run("should report false only after the budget when nothing matches", func(t *testing.T) {
		driver := newFakeDriver()
		w := newWaiter(t, driver)

		budget := 100 * time.Millisecond
		start := time.Now()
		ok := w.WaitForAny(context.Background(), budget, schemas.NewProbeSet("absent", `#missing`))
		require.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), budget)
	})

	t.Run("should notice a probe that appears mid-wait", func(t *testing.T) {
		driver := newFakeDriver()
		go func() {
			time.Sleep(40 * time.Millisecond)
			driver.setPresent(`#late`)
		}()

		w := newWaiter(t, driver)
		ok := w.WaitForAny(context.Background(), time.Second, schemas.NewProbeSet("late", `#late`))
		assert.True(t, ok)
	})
}
