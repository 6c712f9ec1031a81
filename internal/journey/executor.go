package journey

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// Executor performs click/type/read operations with bounded attempts and
// soft-fail semantics. A failed interaction yields false or an empty
// string; deciding whether that sinks the stage is the caller's job, never
// the executor's. A shared rate limiter paces all interactions so the
// target page's own async rendering can keep up.
type Executor struct {
	driver      schemas.PageDriver
	limiter     *rate.Limiter
	timeout     time.Duration
	typingDelay time.Duration
	logger      *zap.Logger
}

// NewExecutor builds an Executor. perSecond caps the interaction rate;
// timeout bounds each single attempt; typingDelay is the inter-character
// pause for Type.
func NewExecutor(driver schemas.PageDriver, timeout, typingDelay time.Duration, perSecond float64, logger *zap.Logger) *Executor {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	if perSecond <= 0 {
		perSecond = 4.0
	}
	return &Executor{
		driver:      driver,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), 1),
		timeout:     timeout,
		typingDelay: typingDelay,
		logger:      logger.With(zap.String("component", "executor")),
	}
}

// Click clicks a resolved element. Returns false on a nil handle, a pacing
// cancellation, or any driver failure.
func (e *Executor) Click(ctx context.Context, handle *schemas.ElementHandle) bool {
	if handle == nil {
		return false
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return false
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.driver.Click(cctx, handle); err != nil {
		e.logger.Debug("Click failed", zap.String("node", handle.Descriptor), zap.Error(err))
		return false
	}
	return true
}

// ClickAtCenter clicks the midpoint of the element's bounding box. This is
// the last-resort path for overlays that swallow element-targeted clicks.
func (e *Executor) ClickAtCenter(ctx context.Context, handle *schemas.ElementHandle) bool {
	if handle == nil {
		return false
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return false
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	box, err := e.driver.BoundingBox(cctx, handle)
	if err != nil || box == nil || box.Width <= 0 || box.Height <= 0 {
		e.logger.Debug("Bounding box unavailable", zap.String("node", handle.Descriptor), zap.Error(err))
		return false
	}
	x, y := box.Center()
	if err := e.driver.ClickAt(cctx, x, y); err != nil {
		e.logger.Debug("Coordinate click failed", zap.Float64("x", x), zap.Float64("y", y), zap.Error(err))
		return false
	}
	return true
}

// Type sends text to a resolved element one character at a time. The
// attempt budget scales with the text length so long destinations are not
// cut off mid-word by the flat interaction timeout.
func (e *Executor) Type(ctx context.Context, handle *schemas.ElementHandle, text string) bool {
	if handle == nil || text == "" {
		return false
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return false
	}

	budget := e.timeout + time.Duration(len(text))*e.typingDelay
	cctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if err := e.driver.TypeText(cctx, handle, text, e.typingDelay); err != nil {
		e.logger.Debug("Type failed", zap.String("node", handle.Descriptor), zap.Error(err))
		return false
	}
	return true
}

// ReadText returns the element's trimmed text, or "" when the element is
// unreadable or has no text. It never returns an error.
func (e *Executor) ReadText(ctx context.Context, handle *schemas.ElementHandle) string {
	if handle == nil {
		return ""
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := e.driver.ReadText(cctx, handle)
	if err != nil {
		e.logger.Debug("Read failed", zap.String("node", handle.Descriptor), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}

// ReadAttr returns the element's attribute value, or "" when the element
// is unreadable or does not carry the attribute. It never returns an error.
func (e *Executor) ReadAttr(ctx context.Context, handle *schemas.ElementHandle, name string) string {
	if handle == nil {
		return ""
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	value, err := e.driver.ReadAttribute(cctx, handle, name)
	if err != nil {
		e.logger.Debug("Attribute read failed", zap.String("node", handle.Descriptor), zap.String("attribute", name), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(value)
}

// Press dispatches a bare key to the page.
func (e *Executor) Press(ctx context.Context, key string) bool {
	if err := e.limiter.Wait(ctx); err != nil {
		return false
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.driver.PressKey(cctx, key); err != nil {
		e.logger.Debug("Key press failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
