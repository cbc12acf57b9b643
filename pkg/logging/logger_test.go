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
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileLoggerWritesComponentTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatd.log")
	logger, err := New(Options{Level: zapcore.InfoLevel, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.ComponentInfo(ComponentLedger, "message appended", zap.Uint64("id", 1))
	logger.ComponentDebug(ComponentLedger, "should be filtered")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "[LEDGER] message appended") {
		t.Errorf("expected component tag in output, got %q", out)
	}
	if strings.Contains(out, "should be filtered") {
		t.Errorf("debug line should be filtered at info level")
	}
}

func TestJSONLoggerHasNoColors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatd.json")
	logger, err := New(Options{Level: zapcore.InfoLevel, JSON: true, EnableColors: true, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.ComponentWarn(ComponentStore, "slow scan")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "\033[") {
		t.Errorf("json output should not contain ANSI escapes: %q", data)
	}
	if !strings.Contains(string(data), `"msg":"[STORE] slow scan"`) {
		t.Errorf("unexpected json output %q", data)
	}
}

func TestSecretHidesValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	logger, err := New(Options{Level: zapcore.InfoLevel, JSON: true, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	const token = "c2Vzc2lvbi10b2tlbi1kby1ub3QtbG9n"
	logger.ComponentInfo(ComponentAuth, "Session issued", Secret("token", token))
	logger.ComponentInfo(ComponentAuth, "Session issued", Secret("token", token))
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	out := string(data)
	if strings.Contains(out, token) {
		t.Fatalf("token leaked into log: %q", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	first := lines[0][strings.Index(lines[0], `"token":`):]
	if !strings.Contains(first, `"sha256:`) || !strings.Contains(lines[1], first) {
		t.Errorf("fingerprint should be stable, got %q", out)
	}

	if f := Secret("token", ""); f.String != "" {
		t.Errorf("empty secret should log empty, got %q", f.String)
	}
}

func TestConsoleTagWithoutColors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.log")
	logger, err := New(Options{Level: zapcore.DebugLevel, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.ComponentError(ComponentGateway, "upgrade failed")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	out := string(data)
	if strings.Contains(out, "\033[") {
		t.Errorf("colors disabled but found ANSI escapes: %q", out)
	}
	for _, want := range []string{"\tE\t", "logger_test", "[GATEWAY] upgrade failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}
}
