// Package viewer shells out to the codebase_viewer binary to produce the
// Markdown report that grounds every consultation.
package viewer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"codebase-consultant/internal/config"
	"codebase-consultant/internal/metrics"
	"codebase-consultant/internal/workflow"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Runner generates codebase reports. Concurrent requests for the same
// directory share one viewer run.
type Runner struct {
	viewerPath string
	charLimit  int
	timeout    time.Duration
	group      singleflight.Group
}

// NewRunner creates a Runner from report configuration.
func NewRunner(cfg config.ReportConfig) *Runner {
	return &Runner{
		viewerPath: cfg.ViewerPath,
		charLimit:  cfg.CharLimit,
		timeout:    cfg.Timeout,
	}
}

// Generate runs the viewer over directory and returns the report, cut to the
// character budget on a rune boundary when it runs long. Calls that arrive
// while a run for the same directory is in flight wait for and share its
// result.
func (r *Runner) Generate(ctx context.Context, directory string) (workflow.Report, error) {
	v, err, shared := r.group.Do(directory, func() (interface{}, error) {
		report, err := r.run(ctx, directory)
		if err != nil {
			return nil, err
		}
		return report, nil
	})
	if err != nil {
		return workflow.Report{}, err
	}
	if shared {
		slog.Debug("codebase report shared with concurrent caller", "directory", directory)
	}
	return v.(workflow.Report), nil
}

func (r *Runner) run(ctx context.Context, directory string) (workflow.Report, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("report-%s.md", uuid.NewString()))
	defer os.Remove(outPath)

	slog.Info("generating codebase report", "directory", directory, "viewer", r.viewerPath)
	start := time.Now()

	cmd := exec.CommandContext(ctx, r.viewerPath, "generate", "--path", directory, "--output", outPath, "--all")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return workflow.Report{}, fmt.Errorf("codebase_viewer failed: %v: %s", err, msg)
		}
		return workflow.Report{}, fmt.Errorf("codebase_viewer failed: %w", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return workflow.Report{}, fmt.Errorf("read generated report: %w", err)
	}
	metrics.ReportDuration.Observe(time.Since(start).Seconds())

	text, truncated := truncateRunes(string(data), r.charLimit)
	if truncated {
		metrics.ReportTruncations.Inc()
		slog.Warn("report exceeds character limit, truncating",
			"directory", directory,
			"bytes", len(data),
			"limit", r.charLimit)
	}

	slog.Debug("codebase report ready",
		"directory", directory,
		"chars", len(text),
		"truncated", truncated,
		"duration", time.Since(start))
	return workflow.Report{Text: text, Truncated: truncated}, nil
}

// truncateRunes cuts s to at most limit runes without splitting a multibyte
// sequence. The second return reports whether anything was cut. A limit of 0
// or less disables the cut.
func truncateRunes(s string, limit int) (string, bool) {
	if limit <= 0 || len(s) <= limit {
		return s, false
	}
	count := 0
	for idx := range s {
		if count == limit {
			return s[:idx], true
		}
		count++
	}
	return s, false
}
