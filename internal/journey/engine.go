package journey

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
	"github.com/xkilldash9x/wayfarer-cli/internal/config"
)

// Runtime bundles the collaborators a stage composes: the page driver and
// the three interaction primitives built on it, plus the run's accumulated
// state. One Runtime serves one run; stages never share it across runs.
type Runtime struct {
	Driver   schemas.PageDriver
	Waiter   *Waiter
	Resolver *Resolver
	Exec     *Executor
	State    *schemas.JourneyState
	Cfg      *config.Config
	Log      *zap.Logger

	// Destinations is the candidate pool the landing stage picks from.
	Destinations []string

	rng *rand.Rand
}

// Stage is one milestone of the fixed journey. Run returns a verdict, not
// an error: transient page trouble is folded into the result, and session
// death is detected by the engine's health check after a failed stage.
type Stage interface {
	Number() int
	Name() string
	Run(ctx context.Context, rt *Runtime) schemas.StageResult
}

// Engine drives the six stages strictly in order on a single logical
// thread. Failed stages are recorded and the run continues; only a lost
// browser session or a cancelled run context ends it early, and the state
// returned then still carries every result recorded so far.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger
	driver schemas.PageDriver
	stages []Stage
	rt     *Runtime

	telemetry schemas.JourneyTelemetry
	source    schemas.TelemetrySource
	artifacts schemas.ArtifactWriter
}

// New builds an Engine for one run against the configured target.
func New(cfg *config.Config, logger *zap.Logger, driver schemas.PageDriver, journeyID string) *Engine {
	log := logger.With(zap.String("component", "journey_engine"))

	rt := &Runtime{
		Driver:       driver,
		Waiter:       NewWaiter(driver, cfg.Timeouts.ProbeInterval, logger),
		Resolver:     NewResolver(driver, cfg.Timeouts.Resolve, logger),
		Exec:         NewExecutor(driver, cfg.Timeouts.Interaction, cfg.Journey.TypingDelay, cfg.Journey.InteractionsPerSecond, logger),
		State:        schemas.NewJourneyState(journeyID, cfg.Target.BaseURL),
		Cfg:          cfg,
		Log:          log,
		Destinations: destinationPool,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	return &Engine{
		cfg:    cfg,
		logger: log,
		driver: driver,
		stages: newStages(),
		rt:     rt,
	}
}

// AttachTelemetry wires a telemetry source that is drained after every
// stage. Optional; a nil source means no capture.
func (e *Engine) AttachTelemetry(src schemas.TelemetrySource) {
	e.source = src
}

// AttachArtifacts wires a best-effort artifact writer for per-stage
// screenshots and DOM snapshots. Optional.
func (e *Engine) AttachArtifacts(w schemas.ArtifactWriter) {
	e.artifacts = w
}

// State returns the run's accumulator.
func (e *Engine) State() *schemas.JourneyState {
	return e.rt.State
}

// Telemetry returns everything drained from the telemetry source so far.
func (e *Engine) Telemetry() *schemas.JourneyTelemetry {
	return &e.telemetry
}

// RunAll executes stages 1 through 6 in order and returns the final state.
// The state always holds one StageResult per attempted stage, and the
// overall verdict is State().Passed().
func (e *Engine) RunAll(ctx context.Context) (*schemas.JourneyState, error) {
	e.logger.Info("Journey starting",
		zap.String("journey_id", e.rt.State.JourneyID),
		zap.String("target", e.rt.State.TargetURL),
	)

	for _, st := range e.stages {
		if err := e.execute(ctx, st); err != nil {
			e.rt.State.FinishedAt = time.Now().UTC()
			return e.rt.State, err
		}
	}

	e.rt.State.FinishedAt = time.Now().UTC()
	e.logger.Info("Journey finished",
		zap.Bool("passed", e.rt.State.Passed()),
		zap.Int("stages", len(e.rt.State.Results)),
		zap.Int("listings", len(e.rt.State.Listings)),
	)
	return e.rt.State, nil
}

// RunStage executes exactly one stage. Stage 1 always runs cold; any later
// stage requires every prior stage to have recorded a result on this
// engine first, since each stage reads state its predecessors produce.
func (e *Engine) RunStage(ctx context.Context, n int) (*schemas.JourneyState, error) {
	if n < 1 || n > len(e.stages) {
		return e.rt.State, fmt.Errorf("stage %d out of range 1..%d", n, len(e.stages))
	}
	for i := 1; i < n; i++ {
		if _, ok := e.rt.State.ResultFor(i); !ok {
			return e.rt.State, fmt.Errorf("stage %d requires stages 1..%d to have run on this engine first", n, n-1)
		}
	}

	err := e.execute(ctx, e.stages[n-1])
	e.rt.State.FinishedAt = time.Now().UTC()
	return e.rt.State, err
}

// execute runs one stage end to end: dependency gate, timed run, result
// recording, artifact capture, telemetry drain, session health check.
func (e *Engine) execute(ctx context.Context, st Stage) error {
	log := e.logger.With(zap.Int("stage", st.Number()), zap.String("stage_name", st.Name()))

	if reason := e.gateReason(st); reason != "" {
		e.rt.State.RecordResult(schemas.StageResult{
			StageNumber: st.Number(),
			Name:        st.Name(),
			Passed:      false,
			Expected:    "upstream stages to supply the data this stage consumes",
			Observed:    reason,
		})
		log.Warn("Stage short-circuited", zap.String("reason", reason))
		e.drainTelemetry(st)
		return nil
	}

	log.Info("Stage starting")
	sctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.Stage)
	start := time.Now()
	res := st.Run(sctx, e.rt)
	cancel()

	res.StageNumber = st.Number()
	res.Name = st.Name()
	if res.DurationMs == 0 {
		res.DurationMs = time.Since(start).Milliseconds()
	}
	e.rt.State.RecordResult(res)

	if res.Passed {
		log.Info("Stage passed", zap.Int64("duration_ms", res.DurationMs))
	} else {
		log.Warn("Stage failed",
			zap.String("expected", res.Expected),
			zap.String("observed", res.Observed),
			zap.Int64("duration_ms", res.DurationMs),
		)
	}

	e.captureArtifacts(ctx, st)
	e.drainTelemetry(st)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled during stage %d (%s): %w", st.Number(), st.Name(), err)
	}
	if !res.Passed {
		if herr := e.driver.Healthy(ctx); herr != nil {
			return fmt.Errorf("stage %d (%s): session unusable: %w", st.Number(), st.Name(), herr)
		}
	}
	return nil
}

// gateReason reports why a stage cannot run at all, or "" when it can.
// These are the hard data dependencies: everything else is recoverable
// stage-locally and never blocks the ladder.
func (e *Engine) gateReason(st Stage) string {
	switch st.Number() {
	case stageResults:
		if e.rt.State.Destination == "" {
			return "skipped: no destination was committed by the landing flow"
		}
	case stageDetail:
		if len(e.rt.State.Listings) == 0 {
			return "skipped: no listings were scraped to open"
		}
	}
	return ""
}

func (e *Engine) captureArtifacts(ctx context.Context, st Stage) {
	if e.artifacts == nil {
		return
	}
	actx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.Interaction)
	defer cancel()

	if e.cfg.Artifacts.Screenshots {
		if png, err := e.driver.Screenshot(actx); err == nil && len(png) > 0 {
			if path, serr := e.artifacts.SaveScreenshot(st.Number(), st.Name(), png); serr != nil {
				e.logger.Debug("Screenshot save failed", zap.Error(serr))
			} else if path != "" {
				e.logger.Debug("Screenshot saved", zap.String("path", path))
			}
		}
	}

	if !e.cfg.Artifacts.Snapshots {
		return
	}
	if html, err := e.driver.PageSource(actx); err == nil && html != "" {
		if path, serr := e.artifacts.SaveSnapshot(st.Number(), st.Name(), []byte(html)); serr != nil {
			e.logger.Debug("Snapshot save failed", zap.Error(serr))
		} else if path != "" {
			e.logger.Debug("Snapshot saved", zap.String("path", path))
		}
	}
}

func (e *Engine) drainTelemetry(st Stage) {
	if e.source == nil {
		return
	}
	network, console := e.source.Drain(st.Number())
	e.telemetry.NetworkLogs = append(e.telemetry.NetworkLogs, network...)
	e.telemetry.ConsoleLogs = append(e.telemetry.ConsoleLogs, console...)
}
