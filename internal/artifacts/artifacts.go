// Package artifacts persists per-stage evidence (screenshots and DOM
// snapshots) under a per-journey directory. Everything here is
// best-effort from the caller's point of view; the engine logs failures
// and moves on.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfarer-cli/api/schemas"
)

// Writer stores artifacts for one journey. Snapshots are brotli
// compressed because raw DOM dumps of a listing page run to megabytes.
type Writer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

var _ schemas.ArtifactWriter = (*Writer)(nil)

// New creates the journey's artifact directory and returns a writer
// rooted in it.
func New(baseDir, journeyID string, logger *zap.Logger) (*Writer, error) {
	dir := filepath.Join(baseDir, journeyID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}
	return &Writer{
		dir:    dir,
		logger: logger.Named("artifacts"),
		now:    time.Now,
	}, nil
}

// Dir returns the journey's artifact directory.
func (w *Writer) Dir() string { return w.dir }

// SaveScreenshot writes a PNG screenshot and returns its path.
func (w *Writer) SaveScreenshot(stageNumber int, stageName string, png []byte) (string, error) {
	path := w.stagePath(stageNumber, stageName, "png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	w.logger.Debug("Screenshot saved", zap.String("path", path), zap.Int("bytes", len(png)))
	return path, nil
}

// SaveSnapshot compresses the page HTML with brotli and writes it as
// .html.br, returning the path.
func (w *Writer) SaveSnapshot(stageNumber int, stageName string, html []byte) (string, error) {
	path := w.stagePath(stageNumber, stageName, "html.br")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating snapshot file: %w", err)
	}

	bw := brotli.NewWriter(f)
	if _, err := bw.Write(html); err != nil {
		bw.Close()
		f.Close()
		return "", fmt.Errorf("compressing snapshot: %w", err)
	}
	// Close flushes the brotli stream; a short write surfaces here.
	if err := bw.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("flushing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing snapshot file: %w", err)
	}
	w.logger.Debug("Snapshot saved", zap.String("path", path), zap.Int("raw_bytes", len(html)))
	return path, nil
}

func (w *Writer) stagePath(stageNumber int, stageName, ext string) string {
	stamp := w.now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("stage_%02d_%s_%s.%s", stageNumber, sanitizeName(stageName), stamp, ext)
	return filepath.Join(w.dir, name)
}

// sanitizeName keeps filenames portable even if a stage name ever grows
// punctuation.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
}
