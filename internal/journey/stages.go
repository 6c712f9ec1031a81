package journey

import (
	"context"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// Fixed stage order. The numbers are wire-visible (stage results, logs,
// artifact names) and never change.
const (
	stageLanding     = 1
	stageSuggestion  = 2
	stageDatePicker  = 3
	stageGuestPicker = 4
	stageResults     = 5
	stageDetail      = 6
)

func newStages() []Stage {
	return []Stage{
		&landingStage{},
		&suggestionStage{},
		&datePickerStage{},
		&guestPickerStage{},
		&resultsStage{},
		&detailStage{},
	}
}

// ensureSurface waits for a stage's UI surface and, when the probes stay
// unsatisfied, clicks through the opener candidates and re-probes after
// each click. Bounded by attempts; false means the surface never appeared.
func ensureSurface(ctx context.Context, rt *Runtime, probes schemas.ProbeSet, openers []schemas.LocatorCandidate, attempts int) bool {
	if rt.Waiter.WaitForAny(ctx, rt.Cfg.Timeouts.ProbeDeadline, probes) {
		return true
	}
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		opener, ok := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true}, openers...)
		if !ok {
			return false
		}
		if !rt.Exec.Click(ctx, opener) {
			continue
		}
		if rt.Waiter.WaitForAny(ctx, rt.Cfg.Timeouts.ProbeDeadline, probes) {
			return true
		}
	}
	return false
}

// truncate caps s for observation strings and log fields.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// firstInt extracts the first run of decimal digits from s. ok is false
// when s holds no digits at all.
func firstInt(s string) (n int, ok bool) {
	started := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			started = true
			n = n*10 + int(r-'0')
			continue
		}
		if started {
			break
		}
	}
	return n, started
}
