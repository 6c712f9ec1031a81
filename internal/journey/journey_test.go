package journey

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
	"github.com/xkilldash9x/wayfarer-cli/internal/config"
)

// -- Scripted Page Driver --

// fakeElement is one scripted DOM node the fake driver can hand out.
type fakeElement struct {
	tag     string
	text    string
	attrs   map[string]string
	visible bool
	enabled bool
	box     schemas.Box
}

// fakeDriver scripts a PageDriver so the full stage ladder runs without a
// browser. Page "reactions" are modeled with onNavigate/onClick/onType
// hooks that mutate the scripted state, mirroring how the real page moves
// between surfaces.
type fakeDriver struct {
	mu sync.Mutex

	present   map[string]bool
	existsErr map[string]error
	elements  map[string][]*fakeElement

	currentURL string
	source     string

	navErr     error
	healthyErr error
	typeFail   bool
	clickFail  map[string]bool

	navigated []string
	clicked   []string
	clickedAt []schemas.Box
	typed     []string
	keys      []string

	onNavigate func(d *fakeDriver, url string)
	onClick    func(d *fakeDriver, tag string)
	onType     func(d *fakeDriver, text string)
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		present:   make(map[string]bool),
		existsErr: make(map[string]error),
		elements:  make(map[string][]*fakeElement),
		clickFail: make(map[string]bool),
	}
}

func (d *fakeDriver) setPresent(selectors ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range selectors {
		d.present[s] = true
	}
}

func (d *fakeDriver) addElement(cand schemas.LocatorCandidate, el *fakeElement) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := cand.String()
	d.elements[key] = append(d.elements[key], el)
}

func (d *fakeDriver) findByTag(tag string) *fakeElement {
	for _, els := range d.elements {
		for _, el := range els {
			if el.tag == tag {
				return el
			}
		}
	}
	return nil
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	if d.navErr != nil {
		return d.navErr
	}
	d.currentURL = url
	if d.onNavigate != nil {
		d.onNavigate(d, url)
	}
	return nil
}

func (d *fakeDriver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentURL, nil
}

func (d *fakeDriver) PageSource(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source, nil
}

func (d *fakeDriver) Exists(ctx context.Context, selector string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.existsErr[selector]; err != nil {
		return false, err
	}
	return d.present[selector], nil
}

func (d *fakeDriver) ResolveFirst(ctx context.Context, cand schemas.LocatorCandidate, opts schemas.ResolveOptions) (*schemas.ElementHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, el := range d.elements[cand.String()] {
		if usableFakeElement(el, opts) {
			return &schemas.ElementHandle{Candidate: cand, TagSelector: el.tag, Descriptor: el.tag}, nil
		}
	}
	return nil, nil
}

func (d *fakeDriver) ResolveAll(ctx context.Context, cand schemas.LocatorCandidate, opts schemas.ResolveOptions, limit int) ([]*schemas.ElementHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var handles []*schemas.ElementHandle
	for _, el := range d.elements[cand.String()] {
		if !usableFakeElement(el, opts) {
			continue
		}
		handles = append(handles, &schemas.ElementHandle{Candidate: cand, TagSelector: el.tag, Descriptor: el.tag})
		if limit > 0 && len(handles) >= limit {
			break
		}
	}
	return handles, nil
}

func (d *fakeDriver) Click(ctx context.Context, handle *schemas.ElementHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.clickFail[handle.TagSelector] {
		return fmt.Errorf("click intercepted on %s", handle.TagSelector)
	}
	d.clicked = append(d.clicked, handle.TagSelector)
	if d.onClick != nil {
		d.onClick(d, handle.TagSelector)
	}
	return nil
}

func (d *fakeDriver) ClickAt(ctx context.Context, x, y float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clickedAt = append(d.clickedAt, schemas.Box{X: x, Y: y})
	return nil
}

func (d *fakeDriver) BoundingBox(ctx context.Context, handle *schemas.ElementHandle) (*schemas.Box, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el := d.findByTag(handle.TagSelector); el != nil {
		box := el.box
		return &box, nil
	}
	return nil, fmt.Errorf("no box for %s", handle.TagSelector)
}

func (d *fakeDriver) TypeText(ctx context.Context, handle *schemas.ElementHandle, text string, perKeyDelay time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.typeFail {
		return fmt.Errorf("typing rejected on %s", handle.TagSelector)
	}
	d.typed = append(d.typed, text)
	if d.onType != nil {
		d.onType(d, text)
	}
	return nil
}

func (d *fakeDriver) ReadText(ctx context.Context, handle *schemas.ElementHandle) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el := d.findByTag(handle.TagSelector); el != nil {
		return el.text, nil
	}
	return "", fmt.Errorf("no element tagged %s", handle.TagSelector)
}

func (d *fakeDriver) ReadAttribute(ctx context.Context, handle *schemas.ElementHandle, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el := d.findByTag(handle.TagSelector); el != nil {
		return el.attrs[name], nil
	}
	return "", fmt.Errorf("no element tagged %s", handle.TagSelector)
}

func (d *fakeDriver) PressKey(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys = append(d.keys, key)
	return nil
}

func (d *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (d *fakeDriver) Stabilize(ctx context.Context, quiet time.Duration) error {
	return nil
}

func (d *fakeDriver) Healthy(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.healthyErr
}

func usableFakeElement(el *fakeElement, opts schemas.ResolveOptions) bool {
	if opts.Visible && !el.visible {
		return false
	}
	if opts.Enabled && !el.enabled {
		return false
	}
	return true
}

// -- Fixture --

type testSetup struct {
	cfg    *config.Config
	driver *fakeDriver
	engine *Engine
	rt     *Runtime
}

// setupTest builds a fast-timeout engine over a fresh scripted driver.
func setupTest(t *testing.T) *testSetup {
	t.Helper()

	cfg := &config.Config{}
	cfg.Target.BaseURL = "https://stay.example.com"
	cfg.Journey.Adults = 3
	cfg.Journey.Children = 2
	cfg.Journey.MaxListings = 20
	cfg.Journey.SuggestionCap = 8
	cfg.Journey.OpenerAttempts = 2
	cfg.Journey.TypingDelay = time.Millisecond
	cfg.Journey.InteractionsPerSecond = 1000
	cfg.Timeouts.Navigation = time.Second
	cfg.Timeouts.Stage = 5 * time.Second
	cfg.Timeouts.ProbeDeadline = 80 * time.Millisecond
	cfg.Timeouts.ResultsDeadline = 120 * time.Millisecond
	cfg.Timeouts.ProbeInterval = 10 * time.Millisecond
	cfg.Timeouts.Resolve = 50 * time.Millisecond
	cfg.Timeouts.Interaction = 100 * time.Millisecond
	cfg.Timeouts.StabilizeQuiet = 10 * time.Millisecond

	driver := newFakeDriver()
	engine := New(cfg, zaptest.NewLogger(t), driver, "journey-under-test")

	return &testSetup{
		cfg:    cfg,
		driver: driver,
		engine: engine,
		rt:     engine.rt,
	}
}
