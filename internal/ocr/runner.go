package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/joseph-ayodele/upi-extractor/internal/common"
)

// Runner executes an external command. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

const maxLoggedStderr = 4 << 10

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{
		"cmd", name,
		"image", common.ImageRefFromContext(ctx),
		"duration_ms", time.Since(start).Milliseconds(),
	}

	switch {
	case err == nil:
		logger.Debug("exec.ok", append(attrs, "stdout_bytes", stdout.Len())...)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		// the process was killed; its exit status says nothing useful
		err = ctx.Err()
		logger.Warn("exec.timeout", attrs...)
	default:
		logger.Error("exec.failed", append(attrs,
			"args", strings.Join(args, " "),
			"error", err,
			"stderr", clip(stderr.String(), maxLoggedStderr),
		)...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + " [clipped]"
}
