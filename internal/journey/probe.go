package journey

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// pollUntil invokes predicate at a fixed interval until it returns true or
// the budget is spent. The first check runs immediately. A false return
// happens only once the full budget has elapsed (or the parent context was
// cancelled); it is never returned early while time remains.
func pollUntil(ctx context.Context, interval, budget time.Duration, predicate func(context.Context) bool) bool {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if predicate(ctx) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// Waiter detects page states by polling probe sets. A probe is a bare
// existence check; the waiter owns the poll cadence and the OR semantics
// across selectors.
type Waiter struct {
	driver   schemas.PageDriver
	interval time.Duration
	logger   *zap.Logger
}

// NewWaiter builds a Waiter polling at the given interval.
func NewWaiter(driver schemas.PageDriver, interval time.Duration, logger *zap.Logger) *Waiter {
	if interval <= 0 {
		interval = 120 * time.Millisecond
	}
	return &Waiter{
		driver:   driver,
		interval: interval,
		logger:   logger.With(zap.String("component", "waiter")),
	}
}

// CheckAny sweeps every selector of every probe set exactly once and
// reports whether any of them currently matches. Driver errors (stale
// handles, detached nodes, mid-navigation queries) count as "not yet
// satisfied"; they never abort the sweep.
func (w *Waiter) CheckAny(ctx context.Context, probes ...schemas.ProbeSet) bool {
	for _, ps := range probes {
		for _, sel := range ps.Selectors {
			ok, err := w.driver.Exists(ctx, sel)
			if err != nil {
				continue
			}
			if ok {
				return true
			}
		}
	}
	return false
}

// WaitForAny polls the probe sets until any one selector matches or the
// budget elapses. Returns true the moment a probe is satisfied.
func (w *Waiter) WaitForAny(ctx context.Context, budget time.Duration, probes ...schemas.ProbeSet) bool {
	start := time.Now()
	satisfied := pollUntil(ctx, w.interval, budget, func(c context.Context) bool {
		return w.CheckAny(c, probes...)
	})

	names := make([]string, 0, len(probes))
	for _, ps := range probes {
		names = append(names, ps.Name)
	}
	w.logger.Debug("Probe wait finished",
		zap.Strings("probes", names),
		zap.Bool("satisfied", satisfied),
		zap.Duration("waited", time.Since(start)),
	)
	return satisfied
}
