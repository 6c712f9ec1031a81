package journey

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// landingStage loads the target, clears any interstitial, and commits a
// destination search: type the destination character by character so the
// autosuggest wakes up, then click the top option. Pressing the confirm
// key stands in when no option will take a click.
type landingStage struct{}

func (s *landingStage) Number() int { return stageLanding }

func (s *landingStage) Name() string { return "landing" }

func (s *landingStage) Run(ctx context.Context, rt *Runtime) schemas.StageResult {
	res := schemas.StageResult{
		Expected: "landing page to load and a destination search to be committed via suggestion click or confirm key",
	}

	nctx, ncancel := context.WithTimeout(ctx, rt.Cfg.Timeouts.Navigation)
	err := rt.Driver.Navigate(nctx, rt.Cfg.Target.BaseURL)
	ncancel()
	if err != nil {
		res.Observed = fmt.Sprintf("navigation to %s failed: %v", rt.Cfg.Target.BaseURL, err)
		return res
	}

	stctx, stcancel := context.WithTimeout(ctx, rt.Cfg.Timeouts.ProbeDeadline)
	_ = rt.Driver.Stabilize(stctx, rt.Cfg.Timeouts.StabilizeQuiet)
	stcancel()

	dismissInterstitials(ctx, rt)

	if !ensureSurface(ctx, rt, searchSurfaceProbes, []schemas.LocatorCandidate{schemas.ByTestID("little-search")}, 1) {
		res.Observed = "search surface never appeared on the landing page"
		return res
	}

	destination := s.pickDestination(rt)
	if destination == "" {
		res.Observed = "no destination available: empty pool and no configured override"
		return res
	}

	field, ok := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true}, searchFieldCandidates...)
	if !ok {
		res.Observed = "no search field candidate resolved to a visible element"
		return res
	}

	// The collapsed search pill takes clicks but not keystrokes; expand it
	// and swap in the real input.
	if field.Candidate.Strategy == schemas.StrategyTestID && field.Candidate.Value == "little-search" {
		if rt.Exec.Click(ctx, field) {
			if input, found := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true}, searchInputCandidates...); found {
				field = input
			}
		}
	}

	rt.Exec.Click(ctx, field)
	if !rt.Exec.Type(ctx, field, destination) {
		res.Observed = fmt.Sprintf("typing %q into the search field failed", destination)
		return res
	}
	rt.State.Destination = destination
	rt.Log.Debug("Destination typed", zap.String("destination", destination))

	committed := false
	how := ""
	if rt.Waiter.WaitForAny(ctx, rt.Cfg.Timeouts.ProbeDeadline, suggestionProbes) {
		if option, found := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true}, suggestionCandidates...); found {
			label := rt.Exec.ReadText(ctx, option)
			if rt.Exec.Click(ctx, option) {
				committed = true
				how = "clicked top suggestion"
				rt.State.SelectedSuggestion = label
				if rt.State.SelectedSuggestion == "" {
					rt.State.SelectedSuggestion = destination
				}
			}
		}
	}
	if !committed && rt.Exec.Press(ctx, "Enter") {
		committed = true
		how = "suggestions unclickable, committed with Enter"
		rt.State.SelectedSuggestion = destination
	}

	if !committed {
		res.Observed = fmt.Sprintf("destination %q typed but neither suggestion click nor confirm key committed the search", destination)
		return res
	}

	res.Passed = true
	res.Observed = fmt.Sprintf("destination %q committed: %s", destination, how)
	return res
}

// pickDestination honors an explicit configured destination, then the
// random toggle, and otherwise takes the pool head so unconfigured runs
// stay reproducible.
func (s *landingStage) pickDestination(rt *Runtime) string {
	if d := rt.Cfg.Journey.Destination; d != "" {
		return d
	}
	if len(rt.Destinations) == 0 {
		return ""
	}
	if rt.Cfg.Journey.RandomDestination {
		return rt.Destinations[rt.rng.Intn(len(rt.Destinations))]
	}
	return rt.Destinations[0]
}

// dismissInterstitials clears translation prompts and cookie banners that
// cover the search surface on first load: Escape first, then the close
// buttons. Skipped entirely once the search field is focused or populated.
// One sweep, strictly best-effort.
func dismissInterstitials(ctx context.Context, rt *Runtime) {
	if !rt.Waiter.CheckAny(ctx, interstitialProbes) {
		return
	}
	if rt.Waiter.CheckAny(ctx, searchActiveProbes) {
		rt.Log.Debug("Interstitial left alone, search field already engaged")
		return
	}
	rt.Exec.Press(ctx, "Escape")
	if !rt.Waiter.CheckAny(ctx, interstitialProbes) {
		return
	}
	if handle, ok := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true}, dismissCandidates...); ok {
		if rt.Exec.Click(ctx, handle) {
			rt.Log.Debug("Interstitial dismissed", zap.Stringer("via", handle.Candidate))
		}
	}
}
