package journey

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// guestPickerStage opens the guest stepper, adds the configured adults and
// children one bounded click at a time, reads back the displayed total,
// and submits the search. Steppers disable at their cap, so every click is
// preceded by a fresh enabled-state resolve and only registered clicks
// count toward the total.
type guestPickerStage struct{}

func (s *guestPickerStage) Number() int { return stageGuestPicker }

func (s *guestPickerStage) Name() string { return "guest_picker" }

func (s *guestPickerStage) Run(ctx context.Context, rt *Runtime) schemas.StageResult {
	wantAdults := rt.Cfg.Journey.Adults
	wantChildren := rt.Cfg.Journey.Children
	res := schemas.StageResult{
		Expected: fmt.Sprintf("guest stepper to accept %d adults and %d children and the search to submit", wantAdults, wantChildren),
	}

	if !ensureSurface(ctx, rt, guestStepperProbes, guestOpeners, rt.Cfg.Journey.OpenerAttempts) {
		res.Observed = "guest stepper never appeared"
		return res
	}

	adults := clickIncrements(ctx, rt, adultsIncrementCandidates, wantAdults)
	if adults == 0 {
		// The target requires at least one adult on every booking. Reopen
		// the stepper once and retry a single click before conceding.
		if ensureSurface(ctx, rt, guestStepperProbes, guestOpeners, 1) {
			adults = clickIncrements(ctx, rt, adultsIncrementCandidates, 1)
		}
	}
	children := clickIncrements(ctx, rt, childrenIncrementCandidates, wantChildren)

	attempted := adults + children
	displayed, source := s.readGuestCount(ctx, rt, attempted)
	rt.State.GuestCount = displayed

	if adults == 0 {
		res.Observed = "no adult increment registered; the journey cannot proceed with zero adults"
		return res
	}

	submitted := false
	if submit, ok := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true, Enabled: true}, searchSubmitCandidates...); ok {
		submitted = rt.Exec.Click(ctx, submit)
	}
	if !submitted {
		res.Observed = fmt.Sprintf("added %d adults and %d children but the search submit never took a click", adults, children)
		return res
	}

	// Let the search round-trip start before the results stage probes.
	stctx, stcancel := context.WithTimeout(ctx, rt.Cfg.Timeouts.ProbeDeadline)
	_ = rt.Driver.Stabilize(stctx, rt.Cfg.Timeouts.StabilizeQuiet)
	stcancel()

	res.Passed = true
	res.Observed = fmt.Sprintf("%d adults + %d children added; guest count %d (%s); search submitted", adults, children, displayed, source)
	return res
}

// clickIncrements clicks an increment control up to target times and
// returns how many clicks actually registered.
func clickIncrements(ctx context.Context, rt *Runtime, candidates []schemas.LocatorCandidate, target int) int {
	done := 0
	for i := 0; i < target; i++ {
		btn, ok := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true, Enabled: true}, candidates...)
		if !ok {
			break
		}
		if !rt.Exec.Click(ctx, btn) {
			break
		}
		done++
	}
	return done
}

// readGuestCount reads the aggregate count from the guests field, falling
// back to the attempted click total when the text yields no number. The
// source tag keeps that substitution visible in the stage observation
// instead of silently passing off an optimistic count as a measurement.
func (s *guestPickerStage) readGuestCount(ctx context.Context, rt *Runtime, attempted int) (int, string) {
	if field, ok := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true}, guestReadbackCandidates...); ok {
		if text := rt.Exec.ReadText(ctx, field); text != "" {
			if n, found := firstInt(text); found {
				return n, "displayed"
			}
		}
	}
	return attempted, "attempted"
}
