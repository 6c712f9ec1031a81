package browser

import (
	"context"
	"strings"
	"sync"
	"time"

	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// networkIdleCheckFrequency is how often WaitNetworkIdle re-inspects the
// in-flight counter while traffic is still moving.
const networkIdleCheckFrequency = 250 * time.Millisecond

// Harvester listens to CDP events on one session and accumulates network
// exchanges and console output until the engine drains them. An exchange
// is attributed to the stage during which it finished, not started.
type Harvester struct {
	ctx    context.Context
	logger *zap.Logger

	// checkEvery defaults to networkIdleCheckFrequency.
	checkEvery time.Duration

	mu       sync.Mutex
	inflight map[network.RequestID]*pendingRequest
	netLogs  []schemas.NetworkLogEntry
	console  []schemas.ConsoleLogEntry
}

// pendingRequest joins RequestWillBeSent with the response that follows it.
type pendingRequest struct {
	url          string
	method       string
	status       int
	resourceType string
	started      time.Time
}

// NewHarvester builds a harvester bound to a chromedp session context.
func NewHarvester(sessionCtx context.Context, logger *zap.Logger) *Harvester {
	return &Harvester{
		ctx:        sessionCtx,
		logger:     logger,
		checkEvery: networkIdleCheckFrequency,
		inflight:   make(map[network.RequestID]*pendingRequest),
	}
}

// Start registers the CDP listener and enables the event domains. It must
// run before the first navigation or early requests go unobserved.
func (h *Harvester) Start() error {
	chromedp.ListenTarget(h.ctx, h.handleEvent)
	if err := chromedp.Run(h.ctx, network.Enable(), cdplog.Enable(), runtime.Enable()); err != nil {
		return err
	}
	h.logger.Debug("Telemetry capture started")
	return nil
}

func (h *Harvester) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		h.onRequest(e)
	case *network.EventResponseReceived:
		h.onResponse(e)
	case *network.EventLoadingFinished:
		h.onComplete(e.RequestID)
	case *network.EventLoadingFailed:
		h.onComplete(e.RequestID)
	case *cdplog.EventEntryAdded:
		h.onLogEntry(e.Entry)
	case *runtime.EventConsoleAPICalled:
		h.onConsoleAPI(e)
	case *runtime.EventExceptionThrown:
		h.onException(e)
	}
}

func (h *Harvester) onRequest(e *network.EventRequestWillBeSent) {
	if e.Request == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inflight[e.RequestID] = &pendingRequest{
		url:          e.Request.URL,
		method:       e.Request.Method,
		resourceType: string(e.Type),
		started:      time.Now(),
	}
}

func (h *Harvester) onResponse(e *network.EventResponseReceived) {
	if e.Response == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.inflight[e.RequestID]; ok {
		p.status = int(e.Response.Status)
	}
}

// onComplete finalizes an exchange on LoadingFinished or LoadingFailed.
// A failed exchange keeps status 0.
func (h *Harvester) onComplete(id network.RequestID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.inflight[id]
	if !ok {
		return
	}
	delete(h.inflight, id)
	h.netLogs = append(h.netLogs, schemas.NetworkLogEntry{
		URL:          p.url,
		Method:       p.method,
		Status:       p.status,
		ResourceType: p.resourceType,
		Timestamp:    p.started,
	})
}

// onLogEntry records browser-level log entries (network failures,
// deprecations, interventions). Page console output travels separately,
// through Runtime.consoleAPICalled.
func (h *Harvester) onLogEntry(entry *cdplog.Entry) {
	if entry == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.console = append(h.console, schemas.ConsoleLogEntry{
		Level:     string(entry.Level),
		Text:      entry.Text,
		Source:    string(entry.Source),
		Timestamp: time.Now(),
	})
}

// onConsoleAPI flattens console.* arguments into one line. Primitive
// values arrive as raw JSON; objects fall back to their description.
func (h *Harvester) onConsoleAPI(e *runtime.EventConsoleAPICalled) {
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		switch {
		case arg == nil:
		case len(arg.Value) > 0:
			parts = append(parts, string(arg.Value))
		case arg.Description != "":
			parts = append(parts, arg.Description)
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.console = append(h.console, schemas.ConsoleLogEntry{
		Level:     string(e.Type),
		Text:      strings.Join(parts, " "),
		Source:    "console-api",
		Timestamp: time.Now(),
	})
}

func (h *Harvester) onException(e *runtime.EventExceptionThrown) {
	if e.ExceptionDetails == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.console = append(h.console, schemas.ConsoleLogEntry{
		Level:     "error",
		Text:      e.ExceptionDetails.Error(),
		Source:    "exception",
		Timestamp: time.Now(),
	})
}

// Drain returns everything captured since the previous drain, stamped with
// the stage that was running. Requests still in flight stay pending and
// surface on a later drain once they complete.
func (h *Harvester) Drain(stageNumber int) ([]schemas.NetworkLogEntry, []schemas.ConsoleLogEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	nets := h.netLogs
	cons := h.console
	h.netLogs = nil
	h.console = nil
	for i := range nets {
		nets[i].StageNumber = stageNumber
	}
	for i := range cons {
		cons[i].StageNumber = stageNumber
	}
	return nets, cons
}

func (h *Harvester) activeRequests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.inflight)
}

// WaitNetworkIdle blocks until no request has been in flight for quiet, or
// either context ends. The quiet timer only runs while the counter sits at
// zero; fresh traffic stops it again.
func (h *Harvester) WaitNetworkIdle(ctx context.Context, quiet time.Duration) error {
	timer := time.NewTimer(quiet)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	ticker := time.NewTicker(h.checkEvery)
	defer ticker.Stop()

	idling := h.activeRequests() == 0
	if idling {
		timer.Reset(quiet)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.ctx.Done():
			return h.ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
			active := h.activeRequests() > 0
			switch {
			case active && idling:
				idling = false
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			case !active && !idling:
				idling = true
				timer.Reset(quiet)
			}
		}
	}
}
