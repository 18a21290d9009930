package middleware

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/block-bite/blockbite-orm/core"
	"github.com/block-bite/blockbite-orm/logger"
)

// SlowLog logs statements that take longer than Threshold.
type SlowLog struct {
	Threshold time.Duration
	LogPath   string

	logger logger.Logger
	file   *os.File
}

// NewSlowLog creates a SlowLog.
// threshold: statements taking longer than this are logged.
// logPath: file the entries are appended to. If empty, logs to standard output.
func NewSlowLog(threshold time.Duration, logPath string) (*SlowLog, error) {
	m := &SlowLog{Threshold: threshold, LogPath: logPath}
	l := logger.NewStdLogger()
	l.SetLevel(logger.LogLevelWarn)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open slow log file: %w", err)
		}
		m.file = f
		l.SetOutput(f)
	}
	m.logger = l.WithFields(map[string]any{"middleware": "slow_log"})
	return m, nil
}

// SetOutput redirects the entries to w.
func (m *SlowLog) SetOutput(w io.Writer) {
	m.logger.SetOutput(w)
}

// SetLogger replaces the logger entirely.
func (m *SlowLog) SetLogger(l logger.Logger) {
	m.logger = l
}

func (m *SlowLog) Name() string {
	return "SlowLog"
}

func (m *SlowLog) Shutdown() error {
	if m.file != nil {
		return m.file.Close()
	}
	return nil
}

func (m *SlowLog) Wrap(next core.Executor) core.Executor {
	return core.ExecutorFuncs{
		SelectFunc: func(ctx context.Context, query string, args ...any) ([]core.Row, error) {
			start := time.Now()
			rows, err := next.Select(ctx, query, args...)
			m.observe(time.Since(start), query, args, int64(len(rows)), err)
			return rows, err
		},
		ExecFunc: func(ctx context.Context, query string, args ...any) (core.WriteResult, error) {
			start := time.Now()
			res, err := next.Exec(ctx, query, args...)
			m.observe(time.Since(start), query, args, res.RowsAffected, err)
			return res, err
		},
	}
}

func (m *SlowLog) observe(duration time.Duration, query string, args []any, rows int64, err error) {
	if duration <= m.Threshold {
		return
	}
	m.logger.Warn("slow sql duration=%v | sql=%s | args=%v | rows=%d | err=%v", duration, query, args, rows, err)
}
