package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
	"github.com/xkilldash9x/wayfarer-cli/internal/config"
)

const (
	// sessionBootTimeout bounds tab creation and viewport setup.
	sessionBootTimeout = 30 * time.Second
	// healthProbeTimeout keeps the liveness check from hanging on a tab
	// that stopped answering; that is exactly the condition it detects.
	healthProbeTimeout = 2 * time.Second
)

// Session owns one browser tab and implements schemas.PageDriver over CDP.
// Every operation runs on a context combining the session's lifetime with
// the caller's deadline, so either side can end a command.
type Session struct {
	id        string
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
	harvester *Harvester

	// tagSeq feeds unique prefixes to resolveScript so handles from
	// successive resolutions never collide.
	tagSeq    atomic.Int64
	closeOnce sync.Once
	onClose   func()
}

var _ schemas.PageDriver = (*Session)(nil)

// newSession opens a tab under the allocator, sizes its viewport, and
// arms telemetry capture before anything navigates.
func newSession(allocCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	id := uuid.New().String()
	sctx, cancel := chromedp.NewContext(allocCtx)
	s := &Session{
		id:     id,
		ctx:    sctx,
		cancel: cancel,
		logger: logger.Named("browser_session").With(zap.String("session_id", id[:8])),
	}
	s.harvester = NewHarvester(sctx, s.logger)

	bctx, bcancel := context.WithTimeout(sctx, sessionBootTimeout)
	defer bcancel()
	err := chromedp.Run(bctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetDeviceMetricsOverride(
			int64(cfg.WindowWidth), int64(cfg.WindowHeight), 1.0, cfg.Mobile,
		).Do(ctx)
	}))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("booting browser tab: %w", err)
	}
	if err := s.harvester.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting telemetry capture: %w", err)
	}
	s.logger.Debug("Browser session ready",
		zap.Int("viewport_width", cfg.WindowWidth),
		zap.Int("viewport_height", cfg.WindowHeight),
		zap.Bool("mobile", cfg.Mobile))
	return s, nil
}

// ID returns the session's identifier for logs and persistence.
func (s *Session) ID() string { return s.id }

// Telemetry exposes the capture buffer the engine drains between stages.
func (s *Session) Telemetry() schemas.TelemetrySource { return s.harvester }

// run executes actions against the tab under the caller's deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(rctx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	err := s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return loc, nil
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("serializing dom: %w", err)
	}
	return html, nil
}

func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	script := fmt.Sprintf(existsScript, jsString(selector))
	if err := s.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return false, fmt.Errorf("probing %q: %w", selector, err)
	}
	return found, nil
}

func (s *Session) ResolveFirst(ctx context.Context, candidate schemas.LocatorCandidate, opts schemas.ResolveOptions) (*schemas.ElementHandle, error) {
	handles, err := s.resolve(ctx, candidate, opts, 1)
	if err != nil || len(handles) == 0 {
		return nil, err
	}
	return handles[0], nil
}

func (s *Session) ResolveAll(ctx context.Context, candidate schemas.LocatorCandidate, opts schemas.ResolveOptions, limit int) ([]*schemas.ElementHandle, error) {
	return s.resolve(ctx, candidate, opts, limit)
}

// resolve evaluates resolveScript once and converts its matches into
// handles addressing the stamped tag attribute.
func (s *Session) resolve(ctx context.Context, candidate schemas.LocatorCandidate, opts schemas.ResolveOptions, limit int) ([]*schemas.ElementHandle, error) {
	script, err := buildResolveScript(resolveSpec{
		Strategy:  string(candidate.Strategy),
		Value:     candidate.Value,
		Qualifier: candidate.Qualifier,
		Visible:   opts.Visible,
		Enabled:   opts.Enabled,
		Limit:     limit,
		TagPrefix: fmt.Sprintf("w%d", s.tagSeq.Add(1)),
	})
	if err != nil {
		return nil, err
	}
	var matches []resolvedNode
	if err := s.run(ctx, chromedp.Evaluate(script, &matches)); err != nil {
		return nil, fmt.Errorf("resolving %s: %w", candidate, err)
	}
	handles := make([]*schemas.ElementHandle, 0, len(matches))
	for _, m := range matches {
		handles = append(handles, &schemas.ElementHandle{
			Candidate:   candidate,
			TagSelector: fmt.Sprintf(`[%s=%q]`, tagAttribute, m.Tag),
			Descriptor:  m.Descriptor,
		})
	}
	return handles, nil
}

func (s *Session) Click(ctx context.Context, handle *schemas.ElementHandle) error {
	if handle == nil {
		return fmt.Errorf("click: nil handle")
	}
	err := s.run(ctx,
		chromedp.ScrollIntoView(handle.TagSelector, chromedp.ByQuery),
		chromedp.Click(handle.TagSelector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("clicking %s: %w", handle.Descriptor, err)
	}
	return nil
}

func (s *Session) ClickAt(ctx context.Context, x, y float64) error {
	if err := s.run(ctx, chromedp.MouseClickXY(x, y)); err != nil {
		return fmt.Errorf("clicking at (%.0f, %.0f): %w", x, y, err)
	}
	return nil
}

func (s *Session) BoundingBox(ctx context.Context, handle *schemas.ElementHandle) (*schemas.Box, error) {
	if handle == nil {
		return nil, fmt.Errorf("bounding box: nil handle")
	}
	var box *schemas.Box
	script := fmt.Sprintf(boundingBoxScript, jsString(handle.TagSelector))
	if err := s.run(ctx, chromedp.Evaluate(script, &box)); err != nil {
		return nil, fmt.Errorf("measuring %s: %w", handle.Descriptor, err)
	}
	if box == nil {
		return nil, fmt.Errorf("measuring %s: node is gone", handle.Descriptor)
	}
	return box, nil
}

func (s *Session) TypeText(ctx context.Context, handle *schemas.ElementHandle, text string, perKeyDelay time.Duration) error {
	if handle == nil {
		return fmt.Errorf("type: nil handle")
	}
	rctx, cancel := combineContext(s.ctx, ctx)
	defer cancel()

	var focused bool
	script := fmt.Sprintf(focusScript, jsString(handle.TagSelector))
	if err := chromedp.Run(rctx, chromedp.Evaluate(script, &focused)); err != nil {
		return fmt.Errorf("focusing %s: %w", handle.Descriptor, err)
	}
	if !focused {
		return fmt.Errorf("focusing %s: node is gone", handle.Descriptor)
	}
	// One key event per rune so autosuggest handlers fire the way they
	// would for a human typist.
	for _, r := range text {
		if err := chromedp.Run(rctx, chromedp.KeyEvent(string(r))); err != nil {
			return fmt.Errorf("typing into %s: %w", handle.Descriptor, err)
		}
		if perKeyDelay <= 0 {
			continue
		}
		select {
		case <-rctx.Done():
			return rctx.Err()
		case <-time.After(perKeyDelay):
		}
	}
	return nil
}

func (s *Session) ReadText(ctx context.Context, handle *schemas.ElementHandle) (string, error) {
	if handle == nil {
		return "", fmt.Errorf("read text: nil handle")
	}
	var text *string
	script := fmt.Sprintf(readTextScript, jsString(handle.TagSelector))
	if err := s.run(ctx, chromedp.Evaluate(script, &text)); err != nil {
		return "", fmt.Errorf("reading %s: %w", handle.Descriptor, err)
	}
	if text == nil {
		return "", fmt.Errorf("reading %s: node is gone", handle.Descriptor)
	}
	return strings.TrimSpace(*text), nil
}

func (s *Session) ReadAttribute(ctx context.Context, handle *schemas.ElementHandle, name string) (string, error) {
	if handle == nil {
		return "", fmt.Errorf("read attribute: nil handle")
	}
	var value *string
	script := fmt.Sprintf(readAttributeScript, jsString(handle.TagSelector), jsString(name))
	if err := s.run(ctx, chromedp.Evaluate(script, &value)); err != nil {
		return "", fmt.Errorf("reading %s of %s: %w", name, handle.Descriptor, err)
	}
	if value == nil {
		return "", fmt.Errorf("reading %s of %s: node is gone", name, handle.Descriptor)
	}
	return *value, nil
}

// keyChords maps journey key names onto CDP key runes.
var keyChords = map[string]string{
	"Enter":  kb.Enter,
	"Escape": kb.Escape,
	"Tab":    kb.Tab,
}

func (s *Session) PressKey(ctx context.Context, key string) error {
	chord, ok := keyChords[key]
	if !ok {
		chord = key
	}
	if err := s.run(ctx, chromedp.KeyEvent(chord)); err != nil {
		return fmt.Errorf("pressing %s: %w", key, err)
	}
	return nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var png []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&png)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return png, nil
}

func (s *Session) Stabilize(ctx context.Context, quiet time.Duration) error {
	rctx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(rctx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for dom: %w", err)
	}
	return s.harvester.WaitNetworkIdle(rctx, quiet)
}

func (s *Session) Healthy(ctx context.Context) error {
	rctx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	pctx, pcancel := context.WithTimeout(rctx, healthProbeTimeout)
	defer pcancel()
	var ready string
	if err := chromedp.Run(pctx, chromedp.Evaluate(`document.readyState`, &ready)); err != nil {
		return fmt.Errorf("health probe: %v: %w", err, schemas.ErrSessionLost)
	}
	return nil
}

// Close tears the tab down gracefully and releases the manager's slot.
// Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session")
		err = chromedp.Cancel(s.ctx)
		s.cancel()
		if s.onClose != nil {
			s.onClose()
		}
	})
	return err
}
