package browser

import "context"

// combineContext derives a context from parent that is additionally
// canceled when other ends. The parent must be the session context so the
// chromedp target values survive; other carries the caller's deadline.
// The returned cancel must always be called or the bridge goroutine leaks.
func combineContext(parent, other context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-other.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
