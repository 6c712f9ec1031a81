package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// junitWriter renders stage results as a JUnit suite so CI systems can
// chart the journey like any other test run. A failed stage becomes a
// <failure> whose message is the expectation and whose body is what was
// actually observed.
type junitWriter struct {
	out io.WriteCloser
}

func (w *junitWriter) Write(state *schemas.JourneyState, _ *schemas.JourneyTelemetry) error {
	if state == nil {
		return fmt.Errorf("nil journey state")
	}

	failures := 0
	var totalMs int64
	for _, r := range state.Results {
		if !r.Passed {
			failures++
		}
		totalMs += r.DurationMs
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", "wayfarer")
	suites.CreateAttr("tests", strconv.Itoa(len(state.Results)))
	suites.CreateAttr("failures", strconv.Itoa(failures))
	suites.CreateAttr("time", seconds(totalMs))

	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", "journey "+state.JourneyID)
	suite.CreateAttr("tests", strconv.Itoa(len(state.Results)))
	suite.CreateAttr("failures", strconv.Itoa(failures))
	suite.CreateAttr("time", seconds(totalMs))
	suite.CreateAttr("timestamp", state.StartedAt.UTC().Format(time.RFC3339))

	for _, r := range state.Results {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("name", fmt.Sprintf("%02d_%s", r.StageNumber, r.Name))
		tc.CreateAttr("classname", "wayfarer.journey")
		tc.CreateAttr("time", seconds(r.DurationMs))
		if !r.Passed {
			f := tc.CreateElement("failure")
			f.CreateAttr("message", r.Expected)
			f.SetText(r.Observed)
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w.out); err != nil {
		return fmt.Errorf("writing junit report: %w", err)
	}
	return nil
}

func (w *junitWriter) Close() error { return w.out.Close() }

func seconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000.0, 'f', 3, 64)
}
