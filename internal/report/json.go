package report

import (
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// journeyReport is the JSON document shape. The full state rides along;
// telemetry is summarized because a run can log thousands of exchanges,
// and only console errors are worth replaying in a report.
type journeyReport struct {
	Journey     *schemas.JourneyState `json:"journey"`
	Summary     summaryBlock          `json:"summary"`
	Telemetry   *telemetryBlock       `json:"telemetry,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
}

type summaryBlock struct {
	Passed       bool  `json:"passed"`
	StagesRun    int   `json:"stages_run"`
	StagesPassed int   `json:"stages_passed"`
	DurationMs   int64 `json:"duration_ms"`
}

type telemetryBlock struct {
	NetworkRequests int                       `json:"network_requests"`
	ConsoleEntries  int                       `json:"console_entries"`
	ConsoleErrors   []schemas.ConsoleLogEntry `json:"console_errors,omitempty"`
}

type jsonWriter struct {
	out io.WriteCloser
}

func (w *jsonWriter) Write(state *schemas.JourneyState, telemetry *schemas.JourneyTelemetry) error {
	if state == nil {
		return fmt.Errorf("nil journey state")
	}
	doc := journeyReport{
		Journey:     state,
		Summary:     summarize(state),
		GeneratedAt: time.Now().UTC(),
	}
	if telemetry != nil {
		tb := &telemetryBlock{
			NetworkRequests: len(telemetry.NetworkLogs),
			ConsoleEntries:  len(telemetry.ConsoleLogs),
		}
		for _, e := range telemetry.ConsoleLogs {
			if e.Level == "error" {
				tb.ConsoleErrors = append(tb.ConsoleErrors, e)
			}
		}
		doc.Telemetry = tb
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding journey report: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.out.Write(data); err != nil {
		return fmt.Errorf("writing journey report: %w", err)
	}
	return nil
}

func (w *jsonWriter) Close() error { return w.out.Close() }

func summarize(state *schemas.JourneyState) summaryBlock {
	s := summaryBlock{
		Passed:    state.Passed(),
		StagesRun: len(state.Results),
	}
	for _, r := range state.Results {
		if r.Passed {
			s.StagesPassed++
		}
	}
	if !state.FinishedAt.IsZero() {
		s.DurationMs = state.FinishedAt.Sub(state.StartedAt).Milliseconds()
	}
	return s
}
