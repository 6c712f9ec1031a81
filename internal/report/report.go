package report

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// Writer emits one finished-journey report. Implementations own their
// output and flush it on Close.
type Writer interface {
	Write(state *schemas.JourneyState, telemetry *schemas.JourneyTelemetry) error
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close so stdout never
// gets closed under the logger.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New builds a report writer for a format. An empty or "stdout" path
// writes to standard output.
func New(format, outputPath string) (Writer, error) {
	var out io.WriteCloser
	isStdout := outputPath == "" || outputPath == "stdout"
	if isStdout {
		out = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("creating report file %s: %w", outputPath, err)
		}
		out = f
	}

	switch format {
	case "json":
		return &jsonWriter{out: out}, nil
	case "junit":
		return &junitWriter{out: out}, nil
	default:
		if !isStdout {
			out.Close()
		}
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}
