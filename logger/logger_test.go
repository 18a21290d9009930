package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestStructuredLogger(t *testing.T) {
	t.Run("TextFormat", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := NewStdLogger()
		l.SetOutput(buf)
		l.Info("hello %s", "world")

		output := buf.String()
		if !strings.Contains(output, "INFO") || !strings.Contains(output, "hello world") {
			t.Errorf("Unexpected text output: %s", output)
		}
		if !strings.HasPrefix(output, "[BLOCKBITE] ") {
			t.Errorf("Missing prefix: %s", output)
		}
	})

	t.Run("JSONFormat", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := NewStdLogger()
		l.SetOutput(buf)
		l.SetFormat(LogFormatJSON)
		l.Warn("slow %d", 3)

		var data map[string]any
		if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("Failed to unmarshal JSON output: %v", err)
		}
		if data["level"] != "WARN" || data["msg"] != "slow 3" {
			t.Errorf("Unexpected JSON output: %v", data)
		}
		if _, ok := data["time"]; !ok {
			t.Errorf("Missing time field in JSON output")
		}
	})

	t.Run("WithFields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := NewStdLogger()
		l.SetOutput(buf)
		l.SetFormat(LogFormatJSON)
		l.WithFields(map[string]any{"table": "wp_blockbite"}).Info("processed")

		var data map[string]any
		if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("Failed to unmarshal JSON output: %v", err)
		}
		if data["table"] != "wp_blockbite" || data["msg"] != "processed" {
			t.Errorf("Unexpected JSON output with fields: %v", data)
		}
	})

	t.Run("SQLJSON", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := NewStdLogger()
		l.SetOutput(buf)
		l.SetFormat(LogFormatJSON)
		l.SQL("SELECT * FROM wp_blockbite WHERE id = ?", 10*time.Millisecond, 1)

		var data map[string]any
		if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
			t.Fatalf("Failed to unmarshal JSON output: %v", err)
		}
		if data["level"] != "SQL" || data["sql"] != "SELECT * FROM wp_blockbite WHERE id = ?" {
			t.Errorf("Unexpected SQL JSON output: %v", data)
		}
		if data["duration"] != "10ms" {
			t.Errorf("Unexpected duration: %v", data["duration"])
		}
	})

	t.Run("LevelFiltering", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := NewStdLogger()
		l.SetOutput(buf)
		l.SetLevel(LogLevelWarn)
		l.Info("hidden")
		l.SQL("SELECT 1", time.Millisecond)
		l.Error("shown")

		output := buf.String()
		if strings.Contains(output, "hidden") || strings.Contains(output, "SELECT 1") {
			t.Errorf("Info entries should be filtered: %s", output)
		}
		if !strings.Contains(output, "shown") {
			t.Errorf("Error entry missing: %s", output)
		}
	})

	t.Run("LevelOutput", func(t *testing.T) {
		mainBuf := &bytes.Buffer{}
		errorBuf := &bytes.Buffer{}
		l := NewStdLogger()
		l.SetOutput(mainBuf)
		l.SetLevelOutput(LogLevelError, errorBuf)

		l.Info("this is info")
		l.Error("this is error")

		if !strings.Contains(mainBuf.String(), "this is info") || !strings.Contains(mainBuf.String(), "this is error") {
			t.Errorf("Main buffer incomplete: %s", mainBuf.String())
		}
		if strings.Contains(errorBuf.String(), "INFO") {
			t.Errorf("Error buffer should not contain INFO: %s", errorBuf.String())
		}
		if !strings.Contains(errorBuf.String(), "this is error") {
			t.Errorf("Error buffer missing ERROR: %s", errorBuf.String())
		}
	})

	t.Run("Nop", func(t *testing.T) {
		l := NewNopLogger()
		l.Error("nothing")
		l.SQL("SELECT 1", time.Millisecond)
	})
}
