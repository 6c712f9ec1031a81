package journey

import "github.com/xkilldash9x/wayfarer-cli/api/schemas"

// The target UI ships several redundant markup variants (test ids, ARIA
// roles, CSS fragments) across deployments and experiments. Every lookup
// in this package is therefore an ordered fallback chain; one variant
// drifting must not strand a stage.

// destinationPool is the fixed candidate list the landing stage draws from
// when no explicit destination is configured.
var destinationPool = []string{
	"Germany",
	"Rome Italy",
	"New York USA",
	"Paris France",
	"London United Kingdom",
	"Tokyo Japan",
	"Bangkok Thailand",
	"Barcelona Spain",
	"Amsterdam Netherlands",
	"Dubai UAE",
	"Berlin Germany",
	"Venice Italy",
	"Los Angeles USA",
	"Madrid Spain",
	"Sydney Australia",
	"Singapore",
	"Hong Kong",
	"Mexico City Mexico",
	"Copenhagen Denmark",
	"Vienna Austria",
}

// -- Probe Sets --

var (
	interstitialProbes = schemas.NewProbeSet("interstitial",
		`[data-testid="translation-announce-modal"]`,
		`[role="dialog"]`,
	)

	searchSurfaceProbes = schemas.NewProbeSet("search-surface",
		`[data-testid="structured-search-input-field-query"]`,
		`input[placeholder*="destination" i]`,
		`[data-testid="little-search"]`,
		`input[type="text"]`,
	)

	// searchActiveProbes match a search field that is focused or already
	// holds text. Overlay dismissal stands down while one is lit, since
	// Escape there closes the autosuggest instead of the overlay.
	searchActiveProbes = schemas.NewProbeSet("search-active",
		`[data-testid="structured-search-input-field-query"]:focus`,
		`input[placeholder*="destination" i]:focus`,
		`[data-testid="structured-search-input-field-query"][placeholder]:not(:placeholder-shown)`,
		`input[placeholder*="destination" i]:not(:placeholder-shown)`,
	)

	suggestionProbes = schemas.NewProbeSet("suggestion-panel",
		`[data-testid="structured-search-input-field-query-panel"]`,
		`[data-testid="autocomplete-menu"]`,
		`[data-testid="option-0"]`,
		`[id^="bigsearch-query-location-suggestion"]`,
	)

	calendarProbes = schemas.NewProbeSet("calendar-open",
		`[aria-label="Calendar"][role="application"]`,
		`button[data-state--date-string]`,
		`button[aria-label*="Move forward to switch to the"]`,
		`[data-testid="expanded-searchbar-dates-calendar-tab"]`,
	)

	guestStepperProbes = schemas.NewProbeSet("guest-stepper",
		`[data-testid="stepper-adults-increase-button"]`,
		`button[aria-label*="Add adult"]`,
	)

	resultsProbes = schemas.NewProbeSet("results-grid",
		`[data-testid="card-container"]`,
		`[itemtype="http://schema.org/ListItem"]`,
		`a[href*="/rooms/"]`,
		`[data-testid="listing-card-title"]`,
	)

	detailProbes = schemas.NewProbeSet("detail-page",
		`[data-testid="listing-details-title"]`,
		`[data-section-id="OVERVIEW_DEFAULT_V2"]`,
		`h1`,
	)
)

// -- Locator Chains --

var (
	// Interstitial dialogs (translation prompts, cookie banners) surface on
	// first load. Dismissal is best-effort and must never block a stage.
	dismissCandidates = []schemas.LocatorCandidate{
		schemas.ByTestID("accept-btn"),
		schemas.ByRole("button", "Close"),
		schemas.ByRole("button", "Dismiss"),
		schemas.ByCSS(`button[aria-label*="close" i]`),
		schemas.ByCSS(`[role="dialog"] button`),
	}

	searchFieldCandidates = []schemas.LocatorCandidate{
		schemas.ByTestID("structured-search-input-field-query"),
		schemas.ByCSS(`input[placeholder*="destination" i]`),
		schemas.ByTestID("little-search"),
		schemas.ByCSS(`input[type="text"]`),
	}

	// searchInputCandidates is the subset of searchFieldCandidates that are
	// actual text inputs, used after expanding the collapsed search bar.
	searchInputCandidates = []schemas.LocatorCandidate{
		schemas.ByTestID("structured-search-input-field-query"),
		schemas.ByCSS(`input[placeholder*="destination" i]`),
		schemas.ByCSS(`input[type="text"]`),
	}

	suggestionCandidates = []schemas.LocatorCandidate{
		schemas.ByTestID("option-0"),
		schemas.ByCSS(`[data-testid="autocomplete-menu"] [role="option"]`),
		schemas.ByCSS(`[id^="bigsearch-query-location-suggestion"]`),
		schemas.ByRole("option", ""),
	}

	// suggestionRowCandidates back the coordinate-click fallback: any
	// visible option row qualifies when the regular chains miss.
	suggestionRowCandidates = []schemas.LocatorCandidate{
		schemas.ByCSS(`[role="option"]`),
		schemas.ByCSS(`[data-testid^="option-"]`),
	}

	datePickerOpeners = []schemas.LocatorCandidate{
		schemas.ByTestID("expanded-searchbar-dates-calendar-tab"),
		schemas.ByTestID("structured-search-input-field-split-dates-0"),
		schemas.ByRole("button", "Check in"),
		schemas.ByRole("button", "Add dates"),
		schemas.ByTestID("little-search"),
	}

	enabledDayCandidates = []schemas.LocatorCandidate{
		schemas.ByCSS(`button[data-state--date-string]:not([disabled]):not([aria-disabled="true"])`),
		schemas.ByCSS(`td[role="button"][aria-disabled="false"]`),
	}

	nextMonthCandidates = []schemas.LocatorCandidate{
		schemas.ByCSS(`button[aria-label="Move forward to switch to the next month."]`),
		schemas.ByCSS(`button[aria-label*="Move forward"]`),
	}

	guestOpeners = []schemas.LocatorCandidate{
		schemas.ByTestID("structured-search-input-field-guests-button"),
		schemas.ByTestID("structured-search-input-field-guests"),
		schemas.ByRole("button", "Who"),
		schemas.ByRole("button", "Add guests"),
		schemas.ByText("Who", "div"),
	}

	adultsIncrementCandidates = []schemas.LocatorCandidate{
		schemas.ByTestID("stepper-adults-increase-button"),
		schemas.ByCSS(`button[aria-label*="Add adult"]`),
	}

	childrenIncrementCandidates = []schemas.LocatorCandidate{
		schemas.ByTestID("stepper-children-increase-button"),
		schemas.ByCSS(`button[aria-label*="Add child"]`),
	}

	guestReadbackCandidates = []schemas.LocatorCandidate{
		schemas.ByCSS(`[data-testid*="structured-search-input-field-guests"]`),
		schemas.ByRole("button", "guest"),
	}

	searchSubmitCandidates = []schemas.LocatorCandidate{
		schemas.ByRole("button", "Search"),
		schemas.ByTestID("structured-search-input-search-button"),
		schemas.ByCSS(`button[type="submit"]`),
	}

	// dateSummaryCandidates surface the chosen dates back to the user on
	// the results page when the URL omits them.
	dateSummaryCandidates = []schemas.LocatorCandidate{
		schemas.ByTestID("little-search"),
		schemas.ByCSS(`[data-testid*="structured-search-input-field-split-dates-0"]`),
		schemas.ByCSS(`button[aria-label*="Check in"]`),
		schemas.ByCSS(`header`),
	}

	listingLinkCandidates = []schemas.LocatorCandidate{
		schemas.ByCSS(`a[href*="/rooms/"]`),
	}
)
