package journey

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// suggestionStage verifies the flow advanced past the autosuggest. When
// the date picker is already on screen the landing commit worked and this
// stage records success without touching the page; retyping the query here
// would double-submit it. Otherwise it independently clicks the top
// suggestion, falling back to a raw coordinate click on the first visible
// row when element-targeted clicks are swallowed.
type suggestionStage struct{}

func (s *suggestionStage) Number() int { return stageSuggestion }

func (s *suggestionStage) Name() string { return "suggestion" }

func (s *suggestionStage) Run(ctx context.Context, rt *Runtime) schemas.StageResult {
	res := schemas.StageResult{
		Expected: "flow advanced past the autosuggest, by the prior commit or by clicking the top suggestion",
	}

	if rt.Waiter.CheckAny(ctx, calendarProbes) {
		res.Passed = true
		res.Observed = "date picker already visible; nothing to re-commit"
		return res
	}

	if !rt.Waiter.WaitForAny(ctx, rt.Cfg.Timeouts.ProbeDeadline, suggestionProbes) {
		res.Observed = "no suggestion panel appeared and the flow had not advanced"
		return res
	}

	s.captureSuggestions(ctx, rt)

	if option, ok := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true}, suggestionCandidates...); ok {
		label := rt.Exec.ReadText(ctx, option)
		if rt.Exec.Click(ctx, option) || rt.Exec.ClickAtCenter(ctx, option) {
			if label != "" {
				rt.State.SelectedSuggestion = label
			}
			res.Passed = true
			res.Observed = fmt.Sprintf("clicked top suggestion %q", label)
			return res
		}
	}

	// Overlays sometimes swallow clicks on every regular candidate; the
	// first visible row's bounding box is the last resort.
	if rows := rt.Resolver.ResolveList(ctx, schemas.ResolveOptions{Visible: true}, 1, suggestionRowCandidates...); len(rows) > 0 {
		label := rt.Exec.ReadText(ctx, rows[0])
		if rt.Exec.ClickAtCenter(ctx, rows[0]) {
			if label != "" {
				rt.State.SelectedSuggestion = label
			}
			res.Passed = true
			res.Observed = fmt.Sprintf("clicked first visible suggestion row %q by coordinates", label)
			return res
		}
	}

	res.Observed = "suggestion panel visible but no candidate row accepted a click"
	return res
}

// captureSuggestions records the visible autosuggest labels, capped by
// config. Purely informational; failures leave the list empty.
func (s *suggestionStage) captureSuggestions(ctx context.Context, rt *Runtime) {
	rows := rt.Resolver.ResolveList(ctx, schemas.ResolveOptions{Visible: true}, rt.Cfg.Journey.SuggestionCap, suggestionRowCandidates...)
	for _, row := range rows {
		if label := rt.Exec.ReadText(ctx, row); label != "" {
			rt.State.Suggestions = append(rt.State.Suggestions, label)
		}
	}
}
