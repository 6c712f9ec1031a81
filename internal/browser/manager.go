package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/internal/config"
)

// Personas presented to the site. The journey drives a consumer web app,
// so the tab must look like a consumer browser.
const (
	defaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	defaultMobileUserAgent = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36"
)

// browserLaunchTimeout bounds the launch-and-respond verification run.
const browserLaunchTimeout = 30 * time.Second

// Manager owns the shared Chrome process. Sessions are tabs under that one
// process; Shutdown waits for them before terminating it.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	// wg tracks open sessions for graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches the browser process and verifies it answers before
// handing out sessions.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		cfg:    cfg,
		logger: logger.Named("browser_manager"),
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, m.allocatorOptions()...)
	m.allocCtx = allocCtx
	m.allocCancel = allocCancel

	// Prove the binary launches and responds before any journey starts.
	testCtx, cancelTest := context.WithTimeout(allocCtx, browserLaunchTimeout)
	testCtx, cancelTestCtx := chromedp.NewContext(testCtx)
	defer cancelTestCtx()
	defer cancelTest()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched and responsive",
		zap.Bool("headless", cfg.Headless),
		zap.Bool("mobile", cfg.Mobile))
	return m, nil
}

// allocatorOptions assembles the launch flags. Later options override the
// chromedp defaults, which is how the automation banner gets dropped.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	ua := m.cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
		if m.cfg.Mobile {
			ua = defaultMobileUserAgent
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", m.cfg.IgnoreTLSErrors),
		// Keeps navigator.webdriver from advertising the harness.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Headless),
		chromedp.WindowSize(m.cfg.WindowWidth, m.cfg.WindowHeight),
		chromedp.UserAgent(ua),
	)

	if m.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.ExecPath))
	}

	// Extra flags from configuration, "--name=value" or bare "--name".
	for _, arg := range m.cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(name, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	// Containerized Linux needs the sandbox relaxed or Chrome won't boot.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// NewSession opens an isolated tab. The caller must Close it; Shutdown
// blocks until every open session has.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	select {
	case <-m.allocCtx.Done():
		return nil, fmt.Errorf("browser manager is shut down: %w", m.allocCtx.Err())
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s, err := newSession(m.allocCtx, m.cfg, m.logger)
	if err != nil {
		return nil, fmt.Errorf("initializing session: %w", err)
	}
	m.wg.Add(1)
	s.onClose = m.wg.Done
	return s, nil
}

// Shutdown waits for open sessions, bounded by ctx, then terminates the
// browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.logger.Debug("All sessions closed")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded, forcing browser termination", zap.Error(ctx.Err()))
	}

	if m.allocCancel != nil {
		m.allocCancel()
		<-m.allocCtx.Done()
	}
	m.logger.Info("Browser process terminated")
	return nil
}
