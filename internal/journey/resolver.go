package journey

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// Resolver turns ordered locator chains into live element handles. It
// consults candidates strictly in declaration order and stops at the first
// one that yields a usable element; later candidates are never evaluated
// once an earlier one matches.
type Resolver struct {
	driver       schemas.PageDriver
	perCandidate time.Duration
	logger       *zap.Logger
}

// NewResolver builds a Resolver with the given per-candidate time budget.
func NewResolver(driver schemas.PageDriver, perCandidate time.Duration, logger *zap.Logger) *Resolver {
	if perCandidate <= 0 {
		perCandidate = 2 * time.Second
	}
	return &Resolver{
		driver:       driver,
		perCandidate: perCandidate,
		logger:       logger.With(zap.String("component", "resolver")),
	}
}

// Resolve returns the first candidate's element that satisfies opts. The
// boolean reports success; a false return means no candidate produced a
// usable element, which callers treat as a stage-level condition, not an
// error. Candidate evaluation failures are logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, opts schemas.ResolveOptions, candidates ...schemas.LocatorCandidate) (*schemas.ElementHandle, bool) {
	for _, cand := range candidates {
		cctx, cancel := context.WithTimeout(ctx, r.perCandidate)
		handle, err := r.driver.ResolveFirst(cctx, cand, opts)
		cancel()

		if err != nil {
			r.logger.Debug("Candidate evaluation failed", zap.Stringer("candidate", cand), zap.Error(err))
			continue
		}
		if handle != nil {
			r.logger.Debug("Candidate matched", zap.Stringer("candidate", cand), zap.String("node", handle.Descriptor))
			return handle, true
		}
	}
	return nil, false
}

// ResolveList returns every element matched by the first candidate that
// yields a non-empty set, in document order, capped at limit (0 = no cap).
// An empty slice means no candidate matched anything.
func (r *Resolver) ResolveList(ctx context.Context, opts schemas.ResolveOptions, limit int, candidates ...schemas.LocatorCandidate) []*schemas.ElementHandle {
	for _, cand := range candidates {
		cctx, cancel := context.WithTimeout(ctx, r.perCandidate)
		handles, err := r.driver.ResolveAll(cctx, cand, opts, limit)
		cancel()

		if err != nil {
			r.logger.Debug("Candidate enumeration failed", zap.Stringer("candidate", cand), zap.Error(err))
			continue
		}
		if len(handles) > 0 {
			return handles
		}
	}
	return nil
}
