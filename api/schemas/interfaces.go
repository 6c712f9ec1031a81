package schemas

import (
	"context"
	"time"
)

// -- Browser Interfaces --

// PageDriver is the surface of one live browser tab that the journey engine
// consumes. Implementations ride CDP; tests substitute a scripted fake so
// the full stage ladder runs without a browser.
type PageDriver interface {
	// Navigate loads a URL and waits for the main document to commit.
	Navigate(ctx context.Context, url string) error
	// CurrentURL returns the tab's current location.
	CurrentURL(ctx context.Context) (string, error)
	// PageSource returns the serialized DOM (outerHTML of the document element).
	PageSource(ctx context.Context) (string, error)
	// Exists reports whether a CSS selector matches anything in the DOM.
	// It never waits; it is a single instantaneous check.
	Exists(ctx context.Context, selector string) (bool, error)
	// ResolveFirst finds the first element matching a candidate that also
	// satisfies opts, stamps it with a unique tag attribute, and returns a
	// handle addressing that tag. A nil handle with nil error means no
	// viable match; errors are reserved for transport failures.
	ResolveFirst(ctx context.Context, candidate LocatorCandidate, opts ResolveOptions) (*ElementHandle, error)
	// ResolveAll resolves every element matching a candidate that satisfies
	// opts, in document order, up to limit (0 means no limit). Each element
	// is tagged the same way ResolveFirst tags its match.
	ResolveAll(ctx context.Context, candidate LocatorCandidate, opts ResolveOptions, limit int) ([]*ElementHandle, error)
	// Click clicks a resolved element.
	Click(ctx context.Context, handle *ElementHandle) error
	// ClickAt dispatches a raw mouse click at viewport coordinates.
	ClickAt(ctx context.Context, x, y float64) error
	// BoundingBox returns the element's viewport-relative content box.
	BoundingBox(ctx context.Context, handle *ElementHandle) (*Box, error)
	// TypeText focuses a resolved element and sends text one character at a
	// time, pausing perKeyDelay between characters.
	TypeText(ctx context.Context, handle *ElementHandle, text string, perKeyDelay time.Duration) error
	// ReadText returns the element's trimmed visible text.
	ReadText(ctx context.Context, handle *ElementHandle) (string, error)
	// ReadAttribute returns the element's attribute value, "" when the
	// attribute is absent.
	ReadAttribute(ctx context.Context, handle *ElementHandle, name string) (string, error)
	// PressKey dispatches a bare key (e.g. "Escape", "Enter") to the page.
	PressKey(ctx context.Context, key string) error
	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Stabilize waits for the DOM to be ready and the network to go quiet
	// for the given period, bounded by the context.
	Stabilize(ctx context.Context, quiet time.Duration) error
	// Healthy reports whether the underlying session can still execute
	// commands. A dead session returns an error wrapping ErrSessionLost.
	Healthy(ctx context.Context) error
}

// -- Persistence and Telemetry Interfaces --

// JourneyTelemetry aggregates the page telemetry captured across a run.
type JourneyTelemetry struct {
	NetworkLogs []NetworkLogEntry `json:"network_logs,omitempty"`
	ConsoleLogs []ConsoleLogEntry `json:"console_logs,omitempty"`
}

// ResultSink persists a finished (or partially finished) journey. A nil
// sink is valid and means persistence is disabled for the run.
type ResultSink interface {
	// PersistJourney writes the journey, its stage results, listings,
	// suggestions, and captured telemetry in one transaction.
	PersistJourney(ctx context.Context, state *JourneyState, telemetry *JourneyTelemetry) error
}

// TelemetrySource hands out the telemetry accumulated since the previous
// drain, stamped with the stage that was running.
type TelemetrySource interface {
	Drain(stageNumber int) ([]NetworkLogEntry, []ConsoleLogEntry)
}

// ArtifactWriter stores per-stage artifacts (screenshots, page snapshots).
// Implementations are best-effort; the engine logs and continues on error.
type ArtifactWriter interface {
	// SaveScreenshot writes a stage screenshot and returns the path.
	SaveScreenshot(stageNumber int, stageName string, png []byte) (string, error)
	// SaveSnapshot writes a compressed DOM snapshot and returns the path.
	SaveSnapshot(stageNumber int, stageName string, html []byte) (string, error)
}
