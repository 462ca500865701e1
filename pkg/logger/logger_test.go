package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithContextAddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	mu.Lock()
	prev := globalLogger
	globalLogger = New(&buf, Config{Level: "debug", Format: "json"})
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		globalLogger = prev
		mu.Unlock()
	})

	ctx := WithRequestID(WithTrace(context.Background(), "trace-1", "span-1"), "req-1")
	Info(ctx, "priced", "model", "BlackScholes")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	for key, want := range map[string]string{
		"msg":        "priced",
		"trace_id":   "trace-1",
		"span_id":    "span-1",
		"request_id": "req-1",
		"model":      "BlackScholes",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %q", key, entry[key], want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Config{Level: "warn", Format: "text"})
	l.Info("hidden")
	l.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestInitFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pricing.log")
	if err := Init(Config{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = Sync()
		mu.Lock()
		globalLogger = nil
		mu.Unlock()
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	})

	Info(context.Background(), "hello file")
	if err := Sync(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("log file missing entry: %q", data)
	}
}

func TestInitFileOutputRequiresPath(t *testing.T) {
	if err := Init(Config{Output: "file"}); err == nil {
		t.Fatal("expected error without file_path")
	}
}
