package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
	"github.com/xkilldash9x/wayfarer-cli/internal/artifacts"
	"github.com/xkilldash9x/wayfarer-cli/internal/browser"
	"github.com/xkilldash9x/wayfarer-cli/internal/config"
	"github.com/xkilldash9x/wayfarer-cli/internal/journey"
	"github.com/xkilldash9x/wayfarer-cli/internal/observability"
	"github.com/xkilldash9x/wayfarer-cli/internal/report"
	"github.com/xkilldash9x/wayfarer-cli/internal/store"
)

// newJourneyCmd creates and configures the `journey` command.
func newJourneyCmd(v *viper.Viper) *cobra.Command {
	journeyCmd := &cobra.Command{
		Use:   "journey [target-url]",
		Short: "Runs the six-stage booking journey against the target web app",
		Args:  cobra.MaximumNArgs(1),
		// Bind flags to their viper keys here so command-line flags
		// correctly override values from the config file and environment.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			bindings := map[string]string{
				"journey.destination":        "destination",
				"journey.random_destination": "random-destination",
				"browser.headless":           "headless",
				"browser.mobile":             "mobile",
				"artifacts.screenshots":      "screenshots",
				"report.format":              "format",
				"report.output":              "output",
				"report.junit_output":        "junit-output",
			}
			for key, flag := range bindings {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJourney(cmd, v, args)
		},
	}

	// Reporting flags.
	journeyCmd.Flags().StringP("output", "o", "", "Report file path. Empty writes the report to stdout.")
	journeyCmd.Flags().StringP("format", "f", "json", "Report format ('json' or 'junit').")
	journeyCmd.Flags().String("junit-output", "", "Also write a JUnit XML report to this path.")

	// Journey overrides.
	journeyCmd.Flags().String("destination", "", "Destination to search for. Empty uses the built-in list. (Overrides config/env)")
	journeyCmd.Flags().Bool("random-destination", false, "Pick the destination at random from the built-in list.")
	journeyCmd.Flags().IntP("stage", "s", 0, "Run only stages 1 through N. 0 runs the full journey.")

	// Browser overrides.
	journeyCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	journeyCmd.Flags().Bool("mobile", false, "Emulate a mobile viewport and user agent.")
	journeyCmd.Flags().Bool("screenshots", true, "Save a screenshot after every stage.")

	return journeyCmd
}

func runJourney(cmd *cobra.Command, v *viper.Viper, args []string) error {
	// The context passed from main is signal-aware.
	ctx := cmd.Context()
	logger := observability.GetLogger()

	// A positional target outranks everything else.
	if len(args) == 1 {
		v.Set("target.base_url", args[0])
	}
	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}

	stageCap, err := cmd.Flags().GetInt("stage")
	if err != nil {
		return err
	}
	if stageCap < 0 || stageCap > 6 {
		return fmt.Errorf("--stage must be between 0 and 6, got %d", stageCap)
	}

	journeyID := uuid.New().String()
	logger.Info("Starting journey",
		zap.String("journey_id", journeyID),
		zap.String("target", cfg.Target.BaseURL),
		zap.Bool("headless", cfg.Browser.Headless),
		zap.Bool("mobile", cfg.Browser.Mobile),
	)

	comps, err := initializeJourneyComponents(ctx, cfg, journeyID, logger)
	if err != nil {
		if comps != nil {
			comps.Shutdown(cfg.Timeouts.Shutdown)
		}
		return fmt.Errorf("failed to initialize journey components: %w", err)
	}
	defer comps.Shutdown(cfg.Timeouts.Shutdown)

	eng := journey.New(cfg, logger, comps.Session, journeyID)
	if cfg.Artifacts.CaptureNetwork {
		eng.AttachTelemetry(comps.Session.Telemetry())
	}
	if comps.Artifacts != nil {
		eng.AttachArtifacts(comps.Artifacts)
	}

	state, runErr := runStages(ctx, eng, stageCap)

	// Persist and report whatever the run produced. A run that died early
	// still carries every stage result recorded before it died.
	if ferr := finalizeJourney(cfg, comps.Store, state, eng.Telemetry(), logger); ferr != nil {
		if runErr == nil {
			runErr = ferr
		} else {
			logger.Error("Finalize failed after run error", zap.Error(ferr))
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Journey aborted gracefully", zap.String("journey_id", journeyID))
			return fmt.Errorf("journey aborted by user signal")
		}
		logger.Error("Journey failed", zap.Error(runErr), zap.String("journey_id", journeyID))
		return runErr
	}

	verdict := "FAILED"
	if state.Passed() {
		verdict = "PASSED"
	}
	fmt.Printf("\nJourney complete. ID: %s  [%s]  Stages passed: %d/%d\n",
		journeyID, verdict, passedStages(state), len(state.Results))
	if comps.Artifacts != nil {
		fmt.Printf("Artifacts: %s\n", comps.Artifacts.Dir())
	}

	return nil
}

// runStages executes the full ladder, or just its first stageCap rungs.
func runStages(ctx context.Context, eng *journey.Engine, stageCap int) (*schemas.JourneyState, error) {
	if stageCap == 0 || stageCap >= 6 {
		return eng.RunAll(ctx)
	}
	state := eng.State()
	for n := 1; n <= stageCap; n++ {
		var err error
		if state, err = eng.RunStage(ctx, n); err != nil {
			return state, err
		}
	}
	return state, nil
}

// journeyComponents holds the initialized services for one run.
type journeyComponents struct {
	Manager   *browser.Manager
	Session   *browser.Session
	DBPool    *pgxpool.Pool
	Store     *store.Store
	Artifacts *artifacts.Writer
}

// Shutdown closes the components in dependency order.
func (jc *journeyComponents) Shutdown(grace time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	logger := observability.GetLogger()
	if jc.Session != nil {
		if err := jc.Session.Close(); err != nil {
			logger.Warn("Error closing browser session", zap.Error(err))
		}
	}
	if jc.Manager != nil {
		if err := jc.Manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during browser shutdown", zap.Error(err))
		}
	}
	if jc.DBPool != nil {
		jc.DBPool.Close()
	}
}

// initializeJourneyComponents handles dependency injection for the run.
func initializeJourneyComponents(ctx context.Context, cfg *config.Config, journeyID string, logger *zap.Logger) (*journeyComponents, error) {
	comps := &journeyComponents{}

	// 1. Optional result sink. An empty URL disables persistence.
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return comps, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		comps.DBPool = pool

		dbStore, err := store.New(ctx, pool, logger)
		if err != nil {
			return comps, fmt.Errorf("failed to initialize result store: %w", err)
		}
		if err := dbStore.Bootstrap(ctx); err != nil {
			return comps, fmt.Errorf("failed to bootstrap result schema: %w", err)
		}
		comps.Store = dbStore
	}

	// 2. Artifact writer.
	if cfg.Artifacts.Dir != "" && (cfg.Artifacts.Screenshots || cfg.Artifacts.Snapshots) {
		w, err := artifacts.New(cfg.Artifacts.Dir, journeyID, logger)
		if err != nil {
			return comps, fmt.Errorf("failed to prepare artifact directory: %w", err)
		}
		comps.Artifacts = w
	}

	// 3. Browser and session.
	manager, err := browser.NewManager(ctx, cfg.Browser, logger)
	if err != nil {
		return comps, fmt.Errorf("failed to launch browser: %w", err)
	}
	comps.Manager = manager

	session, err := manager.NewSession(ctx)
	if err != nil {
		return comps, fmt.Errorf("failed to open browser session: %w", err)
	}
	comps.Session = session

	return comps, nil
}

// finalizeJourney persists the run and writes its reports. It runs under a
// fresh context so results survive a cancelled run, and in parallel since
// the sink and the report files are independent outputs.
func finalizeJourney(cfg *config.Config, sink *store.Store, state *schemas.JourneyState, telemetry *schemas.JourneyTelemetry, logger *zap.Logger) error {
	fctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if telemetry != nil && len(telemetry.NetworkLogs) == 0 && len(telemetry.ConsoleLogs) == 0 {
		telemetry = nil
	}

	g, gctx := errgroup.WithContext(fctx)

	if sink != nil {
		g.Go(func() error {
			if err := sink.PersistJourney(gctx, state, telemetry); err != nil {
				return fmt.Errorf("persisting journey: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return writeReport(cfg.Report.Format, cfg.Report.Output, state, telemetry, logger)
	})
	if cfg.Report.JUnitOutput != "" {
		g.Go(func() error {
			return writeReport("junit", cfg.Report.JUnitOutput, state, telemetry, logger)
		})
	}

	return g.Wait()
}

func writeReport(format, path string, state *schemas.JourneyState, telemetry *schemas.JourneyTelemetry, logger *zap.Logger) error {
	w, err := report.New(format, path)
	if err != nil {
		return fmt.Errorf("failed to initialize %s reporter: %w", format, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			logger.Error("Failed to close reporter", zap.Error(cerr))
		}
	}()

	if err := w.Write(state, telemetry); err != nil {
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}
	if path != "" && path != "stdout" {
		logger.Info("Report written", zap.String("format", format), zap.String("path", path))
	}
	return nil
}

func passedStages(state *schemas.JourneyState) int {
	n := 0
	for _, r := range state.Results {
		if r.Passed {
			n++
		}
	}
	return n
}
