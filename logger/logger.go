package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// LogLevel defines the severity of the log
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

// LogFormat defines the output format of the log
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Logger is the interface for logging SQL and internal messages
type Logger interface {
	SetLevel(level LogLevel)
	SetFormat(format LogFormat)
	SetOutput(w io.Writer)
	// SetLevelOutput copies every entry at exactly level to w, in addition to the main output.
	SetLevelOutput(level LogLevel, w io.Writer)
	WithFields(fields map[string]any) Logger
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SQL(sql string, duration time.Duration, args ...any)
}

type stdLogger struct {
	mu      *sync.Mutex
	level   LogLevel
	format  LogFormat
	writer  io.Writer
	byLevel map[LogLevel]io.Writer
	fields  map[string]any
}

// NewStdLogger creates a new standard logger writing text at Info level to stdout.
func NewStdLogger() Logger {
	return &stdLogger{
		mu:      &sync.Mutex{},
		level:   LogLevelInfo,
		format:  LogFormatText,
		writer:  os.Stdout,
		byLevel: make(map[LogLevel]io.Writer),
		fields:  make(map[string]any),
	}
}

// NewNopLogger returns a logger that drops everything.
func NewNopLogger() Logger {
	l := NewStdLogger()
	l.SetLevel(LogLevelSilent)
	l.SetOutput(nil)
	return l
}

func (l *stdLogger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *stdLogger) SetFormat(format LogFormat) {
	l.format = format
}

func (l *stdLogger) SetOutput(w io.Writer) {
	l.writer = w
}

func (l *stdLogger) SetLevelOutput(level LogLevel, w io.Writer) {
	l.byLevel[level] = w
}

func (l *stdLogger) WithFields(fields map[string]any) Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	byLevel := make(map[LogLevel]io.Writer, len(l.byLevel))
	for k, v := range l.byLevel {
		byLevel[k] = v
	}
	return &stdLogger{
		mu:      l.mu,
		level:   l.level,
		format:  l.format,
		writer:  l.writer,
		byLevel: byLevel,
		fields:  merged,
	}
}

func (l *stdLogger) Info(format string, args ...any) {
	if l.level >= LogLevelInfo {
		l.log(LogLevelInfo, "INFO", fmt.Sprintf(format, args...), nil)
	}
}

func (l *stdLogger) Warn(format string, args ...any) {
	if l.level >= LogLevelWarn {
		l.log(LogLevelWarn, "WARN", fmt.Sprintf(format, args...), nil)
	}
}

func (l *stdLogger) Error(format string, args ...any) {
	if l.level >= LogLevelError {
		l.log(LogLevelError, "ERROR", fmt.Sprintf(format, args...), nil)
	}
}

func (l *stdLogger) SQL(sql string, duration time.Duration, args ...any) {
	if l.level < LogLevelInfo {
		return
	}
	if l.format == LogFormatJSON {
		l.log(LogLevelInfo, "SQL", "", map[string]any{
			"sql":      sql,
			"duration": duration.String(),
			"args":     args,
		})
		return
	}
	msg := fmt.Sprintf("%s[%v] %s | args: %v%s", sqlColor(sql), duration, sql, args, ansiReset)
	l.log(LogLevelInfo, "SQL", msg, nil)
}

func (l *stdLogger) log(level LogLevel, label, msg string, extra map[string]any) {
	var line []byte
	now := time.Now()

	if l.format == LogFormatJSON {
		data := make(map[string]any, len(l.fields)+len(extra)+3)
		for k, v := range l.fields {
			data[k] = v
		}
		for k, v := range extra {
			data[k] = v
		}
		data["time"] = now.Format(time.RFC3339)
		data["level"] = label
		if msg != "" {
			data["msg"] = msg
		}
		b, err := json.Marshal(data)
		if err != nil {
			return
		}
		line = append(b, '\n')
	} else {
		fieldStr := ""
		if len(l.fields) > 0 {
			fieldStr = fmt.Sprintf(" fields: %v", l.fields)
		}
		line = []byte(fmt.Sprintf("[BLOCKBITE] %s %s: %s%s\n", now.Format("2006-01-02 15:04:05"), label, msg, fieldStr))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer != nil {
		_, _ = l.writer.Write(line)
	}
	if w, ok := l.byLevel[level]; ok && w != nil {
		_, _ = w.Write(line)
	}
}

func sqlColor(sqlStr string) string {
	s := strings.TrimSpace(strings.ToUpper(sqlStr))
	switch {
	case strings.HasPrefix(s, "SELECT"):
		return ansiYellow
	case strings.HasPrefix(s, "INSERT"), strings.HasPrefix(s, "UPDATE"):
		return ansiGreen
	case strings.HasPrefix(s, "DELETE"):
		return ansiRed
	default:
		return ansiCyan
	}
}
