package journey

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// Default day-pick heuristic: indices into the enabled-day enumeration,
// clamped for short grids. Keeping the picks a few days into the grid
// avoids same-day check-ins the target rejects.
const (
	checkInDayIndex  = 2
	checkOutDayIndex = 6

	// maxCalendarAdvances bounds how many times the stage pages the
	// calendar forward hunting for a month with enough open days.
	maxCalendarAdvances = 3
)

// datePickerStage confirms the calendar is open (opening it when needed)
// and selects two enabled days, the check-out strictly after the check-in
// in document order.
type datePickerStage struct{}

func (s *datePickerStage) Number() int { return stageDatePicker }

func (s *datePickerStage) Name() string { return "date_picker" }

func (s *datePickerStage) Run(ctx context.Context, rt *Runtime) schemas.StageResult {
	res := schemas.StageResult{
		Expected: "two distinct enabled days selected, check-out after check-in in document order",
	}

	if !ensureSurface(ctx, rt, calendarProbes, datePickerOpeners, rt.Cfg.Journey.OpenerAttempts) {
		res.Observed = "calendar never opened"
		return res
	}

	days := s.enabledDays(ctx, rt)
	for advance := 0; len(days) < 2 && advance < maxCalendarAdvances; advance++ {
		next, ok := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true, Enabled: true}, nextMonthCandidates...)
		if !ok || !rt.Exec.Click(ctx, next) {
			break
		}
		days = s.enabledDays(ctx, rt)
	}
	if len(days) < 2 {
		res.Observed = fmt.Sprintf("only %d enabled day cells found after advancing the calendar", len(days))
		return res
	}

	ci, co := pickDayIndices(len(days))
	checkInLabel := s.dayLabel(ctx, rt, days[ci])

	// Bare day numbers repeat across adjacent month grids; walk forward
	// until the check-out label differs from the check-in's.
	for co < len(days) && s.dayLabel(ctx, rt, days[co]) == checkInLabel {
		co++
	}
	if co >= len(days) {
		res.Observed = fmt.Sprintf("no enabled day after index %d carries a label distinct from %q", ci, checkInLabel)
		return res
	}
	checkOutLabel := s.dayLabel(ctx, rt, days[co])

	if !rt.Exec.Click(ctx, days[ci]) {
		res.Observed = fmt.Sprintf("check-in click failed on day %q", checkInLabel)
		return res
	}

	if !rt.Exec.Click(ctx, days[co]) {
		// The first click re-renders the grid on some deployments. The grid
		// disables days before the chosen check-in, so after re-enumerating,
		// the first distinct enabled day past the check-in is a valid
		// check-out.
		label, ok := s.clickFirstAfter(ctx, rt, checkInLabel)
		if !ok {
			res.Observed = fmt.Sprintf("check-out click failed after check-in %q", checkInLabel)
			return res
		}
		checkOutLabel = label
	}

	rt.State.CheckIn = checkInLabel
	rt.State.CheckOut = checkOutLabel

	res.Passed = true
	res.Observed = fmt.Sprintf("check-in %q (index %d), check-out %q (index %d) of %d enabled days", checkInLabel, ci, checkOutLabel, co, len(days))
	return res
}

func (s *datePickerStage) enabledDays(ctx context.Context, rt *Runtime) []*schemas.ElementHandle {
	return rt.Resolver.ResolveList(ctx, schemas.ResolveOptions{Visible: true, Enabled: true}, 0, enabledDayCandidates...)
}

// dayLabel prefers the cell's full date attribute over its aria-label over
// its bare text, falling back to the node descriptor so log lines never
// show an empty day.
func (s *datePickerStage) dayLabel(ctx context.Context, rt *Runtime, h *schemas.ElementHandle) string {
	if v := rt.Exec.ReadAttr(ctx, h, "data-state--date-string"); v != "" {
		return v
	}
	if v := rt.Exec.ReadAttr(ctx, h, "aria-label"); v != "" {
		return v
	}
	if t := rt.Exec.ReadText(ctx, h); t != "" {
		return t
	}
	return h.Descriptor
}

// clickFirstAfter re-enumerates the grid and clicks the first enabled day
// past the check-in cell whose label differs from it.
func (s *datePickerStage) clickFirstAfter(ctx context.Context, rt *Runtime, checkInLabel string) (string, bool) {
	days := s.enabledDays(ctx, rt)

	after := 0
	for i, d := range days {
		if s.dayLabel(ctx, rt, d) == checkInLabel {
			after = i + 1
			break
		}
	}
	for _, d := range days[after:] {
		label := s.dayLabel(ctx, rt, d)
		if label == "" || label == checkInLabel {
			continue
		}
		if rt.Exec.Click(ctx, d) {
			return label, true
		}
	}
	return "", false
}

// pickDayIndices applies the default heuristic, clamped so both indices
// stay in range with the check-out strictly after the check-in.
func pickDayIndices(n int) (ci, co int) {
	ci, co = checkInDayIndex, checkOutDayIndex
	if ci > n-2 {
		ci = n - 2
	}
	if ci < 0 {
		ci = 0
	}
	if co > n-1 {
		co = n - 1
	}
	if co <= ci {
		co = ci + 1
	}
	return ci, co
}
