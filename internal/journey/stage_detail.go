package journey

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
	"github.com/xkilldash9x/wayfarer-cli/internal/extract"
)

// detailStage opens one scraped listing and captures its title, subtitle,
// and gallery image set from a single DOM snapshot. The pick is the first
// listing carrying a usable URL, which keeps the choice deterministic for
// a given scrape.
type detailStage struct{}

func (s *detailStage) Number() int { return stageDetail }

func (s *detailStage) Name() string { return "detail" }

func (s *detailStage) Run(ctx context.Context, rt *Runtime) schemas.StageResult {
	res := schemas.StageResult{
		Expected: "listing detail page to open with a readable title",
	}

	pick, href := chooseListing(rt)
	rt.State.SelectedListing = pick

	opened := false
	if href != "" {
		nctx, ncancel := context.WithTimeout(ctx, rt.Cfg.Timeouts.Navigation)
		opened = rt.Driver.Navigate(nctx, href) == nil
		ncancel()
	}
	if !opened {
		// No usable URL, or the direct load failed: click through the card.
		if link, ok := rt.Resolver.Resolve(ctx, schemas.ResolveOptions{Visible: true}, listingLinkCandidates...); ok {
			opened = rt.Exec.Click(ctx, link)
		}
	}
	if !opened {
		res.Observed = fmt.Sprintf("listing %q could not be opened, neither by URL nor by card click", truncate(pick.Title, 60))
		return res
	}

	stctx, stcancel := context.WithTimeout(ctx, rt.Cfg.Timeouts.ProbeDeadline)
	_ = rt.Driver.Stabilize(stctx, rt.Cfg.Timeouts.StabilizeQuiet)
	stcancel()

	rt.Waiter.WaitForAny(ctx, rt.Cfg.Timeouts.ProbeDeadline, detailProbes)

	currentURL, err := rt.Driver.CurrentURL(ctx)
	if err != nil {
		currentURL = ""
	}
	html, err := rt.Driver.PageSource(ctx)
	if err != nil || html == "" {
		res.Observed = "detail page snapshot unavailable"
		return res
	}

	detail, err := extract.Detail(strings.NewReader(html))
	if err != nil {
		res.Observed = fmt.Sprintf("detail page snapshot unparsable: %v", err)
		return res
	}
	detail.PageURL = currentURL
	rt.State.Detail = &detail

	res.Passed = strings.Contains(currentURL, "/rooms/") && detail.Title != ""
	res.Observed = fmt.Sprintf("title=%q subtitle=%q images=%d url=%s",
		truncate(detail.Title, 80), truncate(detail.Subtitle, 80), len(detail.ImageURLs), truncate(currentURL, 100))
	return res
}

// chooseListing returns the first listing with a usable URL. When none
// carries one, the head listing is returned with an empty href and the
// stage falls back to clicking a card link.
func chooseListing(rt *Runtime) (*schemas.ListingRecord, string) {
	for i := range rt.State.Listings {
		if href := usableListingURL(rt.State.Listings[i].ListingURL, rt.Cfg.Target.BaseURL); href != "" {
			return &rt.State.Listings[i], href
		}
	}
	return &rt.State.Listings[0], ""
}

// usableListingURL normalizes a scraped href to an absolute listing URL,
// or "" when it cannot address a listing page.
func usableListingURL(href, base string) string {
	if href == "" || !strings.Contains(href, "/rooms/") {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		b, err := url.Parse(base)
		if err != nil {
			return ""
		}
		rel, err := url.Parse(href)
		if err != nil {
			return ""
		}
		return b.ResolveReference(rel).String()
	}
	return ""
}
