package textextract

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *zap.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if r.logger != nil {
		if err != nil {
			r.logger.Error("exec failed",
				zap.String("cmd", name),
				zap.String("args", strings.Join(args, " ")),
				zap.Int64("duration_ms", dur.Milliseconds()),
				zap.String("stderr", truncate(errb.String(), 8<<10)),
				zap.Error(err),
			)
		} else {
			r.logger.Debug("exec ok",
				zap.String("cmd", name),
				zap.Int64("duration_ms", dur.Milliseconds()),
				zap.Int("stdout_bytes", out.Len()),
			)
		}
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
