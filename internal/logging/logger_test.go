package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := DefaultConfig()
	cfg.OutputPaths = []string{path}

	logger, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Named("bank").With(zap.String("request_id", "r-1")).Info("transfer completed", zap.Uint("transfer_id", 7))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(raw)
	if !strings.Contains(line, `"request_id":"r-1"`) {
		t.Fatalf("With field missing: %s", line)
	}
	if !strings.Contains(line, `"msg":"transfer completed"`) || !strings.Contains(line, `"transfer_id":7`) {
		t.Fatalf("unexpected log line: %s", line)
	}
	if !strings.Contains(line, `"logger":"bank"`) {
		t.Fatalf("logger name missing: %s", line)
	}
}

func TestGlobalLogger(t *testing.T) {
	if L() == nil {
		t.Fatal("global logger should default to no-op")
	}
	custom := NewNoOpLogger()
	SetGlobal(custom)
	defer SetGlobal(nil)
	if L() != custom {
		t.Fatal("SetGlobal did not replace the global logger")
	}
}
