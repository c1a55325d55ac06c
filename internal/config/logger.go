package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

const (
	logMaxAge       = 7 * 24 * time.Hour
	logRotationTime = 24 * time.Hour
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger. With a logFile the output is also
// written to a daily rotated file; the returned closer releases it.
func NewLogger(env, logFile string) (*slog.Logger, io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if logFile != "" {
		rl, err := rotatelogs.New(
			logFile+".%Y%m%d",
			rotatelogs.WithLinkName(logFile),
			rotatelogs.WithMaxAge(logMaxAge),
			rotatelogs.WithRotationTime(logRotationTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, rl)
		closer = rl
	}

	return slog.New(newHandler(env, out)), closer, nil
}

func newHandler(env string, out io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	if env == "production" {
		opts.Level = slog.LevelInfo
		return slog.NewJSONHandler(out, opts)
	}

	opts.Level = slog.LevelDebug
	return slog.NewTextHandler(out, opts)
}
