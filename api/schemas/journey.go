package schemas

import "time"

// -- Journey Data Model --

// StageResult is the immutable outcome of a single journey stage. One is
// recorded per stage per run, in stage order, whether the stage passed,
// failed, or was skipped because an upstream dependency broke.
type StageResult struct {
	StageNumber int    `json:"stage_number"` // 1-based, fixed per stage
	Name        string `json:"name"`
	Passed      bool   `json:"passed"`
	Expected    string `json:"expected"`
	Observed    string `json:"observed"`
	DurationMs  int64  `json:"duration_ms"`
}

// ListingRecord is one extracted search result. Title is the only required
// field; Position is the 0-based index in final emission order.
type ListingRecord struct {
	Title      string `json:"title"`
	Price      string `json:"price,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	ListingURL string `json:"listing_url,omitempty"`
	Position   int    `json:"position"`
}

// DetailRecord holds what the detail stage scraped from a listing page.
// Absent fields are empty strings, never nil-ish sentinels.
type DetailRecord struct {
	Title     string   `json:"title"`
	Subtitle  string   `json:"subtitle,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"` // deduplicated, first-seen order
	PageURL   string   `json:"page_url"`
}

// JourneyState accumulates everything a run learns. Each field is written
// by exactly one stage and Results grows strictly in stage order; nothing
// is ever removed or rewritten once a stage has finished.
type JourneyState struct {
	JourneyID          string          `json:"journey_id"`
	TargetURL          string          `json:"target_url"`
	Destination        string          `json:"destination,omitempty"`
	SelectedSuggestion string          `json:"selected_suggestion,omitempty"`
	Suggestions        []string        `json:"suggestions,omitempty"`
	CheckIn            string          `json:"check_in,omitempty"`
	CheckOut           string          `json:"check_out,omitempty"`
	GuestCount         int             `json:"guest_count,omitempty"`
	Listings           []ListingRecord `json:"listings,omitempty"`
	SelectedListing    *ListingRecord  `json:"selected_listing,omitempty"`
	Detail             *DetailRecord   `json:"detail,omitempty"`
	Results            []StageResult   `json:"results"`
	StartedAt          time.Time       `json:"started_at"`
	FinishedAt         time.Time       `json:"finished_at,omitempty"`
}

// NewJourneyState seeds a state for one run.
func NewJourneyState(journeyID, targetURL string) *JourneyState {
	return &JourneyState{
		JourneyID: journeyID,
		TargetURL: targetURL,
		Results:   make([]StageResult, 0, 6),
		StartedAt: time.Now().UTC(),
	}
}

// RecordResult appends a stage outcome. Results only ever grow.
func (s *JourneyState) RecordResult(r StageResult) {
	s.Results = append(s.Results, r)
}

// Passed reports whether every recorded stage passed. A run with no
// results has not passed.
func (s *JourneyState) Passed() bool {
	if len(s.Results) == 0 {
		return false
	}
	for _, r := range s.Results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// ResultFor returns the recorded result for a stage number, if any.
func (s *JourneyState) ResultFor(stageNumber int) (StageResult, bool) {
	for _, r := range s.Results {
		if r.StageNumber == stageNumber {
			return r, true
		}
	}
	return StageResult{}, false
}

// -- Captured Page Telemetry --

// NetworkLogEntry summarizes one network exchange observed while a stage ran.
type NetworkLogEntry struct {
	StageNumber  int       `json:"stage_number"`
	URL          string    `json:"url"`
	Method       string    `json:"method"`
	Status       int       `json:"status"`
	ResourceType string    `json:"resource_type,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ConsoleLogEntry is one console message, log entry, or uncaught exception
// emitted by the page while a stage ran.
type ConsoleLogEntry struct {
	StageNumber int       `json:"stage_number"`
	Level       string    `json:"level"`
	Text        string    `json:"text"`
	Source      string    `json:"source,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
