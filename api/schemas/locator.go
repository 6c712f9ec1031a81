package schemas

import "fmt"

// -- Locator Strategies --

// LocatorStrategy identifies how a LocatorCandidate addresses the DOM.
type LocatorStrategy string

const (
	StrategyTestID LocatorStrategy = "testid"
	StrategyRole   LocatorStrategy = "role"
	StrategyCSS    LocatorStrategy = "css"
	StrategyText   LocatorStrategy = "text"
)

// LocatorCandidate is one immutable way of finding an element. Candidates
// are declared in priority order and the resolver consults them strictly
// in that order; a candidate never changes after construction.
type LocatorCandidate struct {
	Strategy LocatorStrategy `json:"strategy"`
	// Value is the strategy operand: the data-testid value, the ARIA role,
	// the CSS selector, or the text to match.
	Value string `json:"value"`
	// Qualifier narrows role candidates (accessible name substring) and
	// text candidates (tag name filter). Empty means unqualified.
	Qualifier string `json:"qualifier,omitempty"`
}

// ByTestID matches [data-testid="value"].
func ByTestID(value string) LocatorCandidate {
	return LocatorCandidate{Strategy: StrategyTestID, Value: value}
}

// ByRole matches [role="role"], optionally filtered by accessible name
// (aria-label or trimmed text, case-insensitive substring).
func ByRole(role, name string) LocatorCandidate {
	return LocatorCandidate{Strategy: StrategyRole, Value: role, Qualifier: name}
}

// ByCSS matches a raw CSS selector.
func ByCSS(selector string) LocatorCandidate {
	return LocatorCandidate{Strategy: StrategyCSS, Value: selector}
}

// ByText matches elements whose trimmed text equals the value
// (case-insensitive), optionally restricted to one tag name.
func ByText(text, tag string) LocatorCandidate {
	return LocatorCandidate{Strategy: StrategyText, Value: text, Qualifier: tag}
}

// String renders the candidate for logs and stage observations.
func (c LocatorCandidate) String() string {
	if c.Qualifier != "" {
		return fmt.Sprintf("%s=%q(%s)", c.Strategy, c.Value, c.Qualifier)
	}
	return fmt.Sprintf("%s=%q", c.Strategy, c.Value)
}

// ResolveOptions constrains what counts as a usable element during
// resolution. The zero value accepts any attached element.
type ResolveOptions struct {
	// Visible requires a nonzero box and a computed style that is not
	// display:none / visibility:hidden / opacity:0.
	Visible bool
	// Enabled rejects elements with the disabled attribute or
	// aria-disabled="true".
	Enabled bool
}

// ElementHandle addresses one resolved element. TagSelector targets the
// unique data attribute stamped onto the node at resolution time, so the
// handle stays valid while siblings shuffle around it.
type ElementHandle struct {
	Candidate   LocatorCandidate `json:"candidate"`
	TagSelector string           `json:"tag_selector"`
	// Descriptor is a short human-readable sketch of the matched node
	// (tag, id, a few attributes) for logs.
	Descriptor string `json:"descriptor,omitempty"`
}

// Box is an element's viewport-relative content box in CSS pixels.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the box.
func (b Box) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// -- Probes --

// ProbeSet is a named group of existence selectors with OR semantics: the
// probe is satisfied as soon as any one selector matches the DOM. Probes
// only check existence; they never interact.
type ProbeSet struct {
	Name      string   `json:"name"`
	Selectors []string `json:"selectors"`
}

// NewProbeSet builds a probe set. Order matters only for log readability;
// satisfaction is an OR over all selectors.
func NewProbeSet(name string, selectors ...string) ProbeSet {
	return ProbeSet{Name: name, Selectors: selectors}
}
