package journey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

func TestResolver(t *testing.T) {
	newResolver := func(t *testing.T, d *fakeDriver) *Resolver {
		t.Helper()
		return NewResolver(d, 50*time.Millisecond, zaptest.NewLogger(t))
	}

	t.Run("should return the first candidate that matches, never a later one", func(t *testing.T) {
		driver := newFakeDriver()
		second := schemas.ByCSS(`.second`)
		third := schemas.ByCSS(`.third`)
		driver.addElement(second, &fakeElement{tag: "tag-second", visible: true, enabled: true})
		driver.addElement(third, &fakeElement{tag: "tag-third", visible: true, enabled: true})

		r := newResolver(t, driver)
		handle, ok := r.Resolve(context.Background(), schemas.ResolveOptions{Visible: true},
			schemas.ByCSS(`.first`), second, third)

		require.True(t, ok)
		assert.Equal(t, "tag-second", handle.TagSelector)
		assert.Equal(t, second, handle.Candidate)
	})

	t.Run("should skip candidates whose match fails the constraints", func(t *testing.T) {
		driver := newFakeDriver()
		hidden := schemas.ByTestID("hidden-button")
		disabled := schemas.ByTestID("disabled-button")
		usable := schemas.ByTestID("usable-button")
		driver.addElement(hidden, &fakeElement{tag: "tag-hidden", visible: false, enabled: true})
		driver.addElement(disabled, &fakeElement{tag: "tag-disabled", visible: true, enabled: false})
		driver.addElement(usable, &fakeElement{tag: "tag-usable", visible: true, enabled: true})

		r := newResolver(t, driver)
		handle, ok := r.Resolve(context.Background(), schemas.ResolveOptions{Visible: true, Enabled: true},
			hidden, disabled, usable)

		require.True(t, ok)
		assert.Equal(t, "tag-usable", handle.TagSelector)
	})

	t.Run("should report not found instead of failing when nothing matches", func(t *testing.T) {
		driver := newFakeDriver()
		r := newResolver(t, driver)

		handle, ok := r.Resolve(context.Background(), schemas.ResolveOptions{Visible: true},
			schemas.ByTestID("ghost"), schemas.ByRole("button", "Ghost"))

		assert.False(t, ok)
		assert.Nil(t, handle)
	})

	t.Run("should enumerate the first non-empty candidate list in document order", func(t *testing.T) {
		driver := newFakeDriver()
		days := schemas.ByCSS(`button.day`)
		for i := 0; i < 5; i++ {
			driver.addElement(days, &fakeElement{tag: dayTag(i), text: dayText(i), visible: true, enabled: true})
		}

		r := newResolver(t, driver)
		handles := r.ResolveList(context.Background(), schemas.ResolveOptions{Visible: true, Enabled: true}, 0,
			schemas.ByCSS(`button.missing`), days)

		require.Len(t, handles, 5)
		for i, h := range handles {
			assert.Equal(t, dayTag(i), h.TagSelector, "enumeration must keep document order")
		}
	})

	t.Run("should cap enumeration at the limit", func(t *testing.T) {
		driver := newFakeDriver()
		rows := schemas.ByCSS(`[role="option"]`)
		for i := 0; i < 8; i++ {
			driver.addElement(rows, &fakeElement{tag: dayTag(i), visible: true, enabled: true})
		}

		r := newResolver(t, driver)
		handles := r.ResolveList(context.Background(), schemas.ResolveOptions{Visible: true}, 3, rows)
		assert.Len(t, handles, 3)
	})
}

func dayTag(i int) string {
	return string(rune('a'+i)) + "-day"
}

func dayText(i int) string {
	return string(rune('0' + i))
}
