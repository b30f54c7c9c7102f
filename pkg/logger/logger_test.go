package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerTextOutput(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	var buf bytes.Buffer
	if err := SetOutput(&buf); err != nil {
		t.Fatalf("set output: %v", err)
	}
	defer func() { _ = Init() }()

	Get().Info(context.Background(), "series skipped", String("channel", "voice"), Int("rows", 3))

	line := buf.String()
	for _, want := range []string{"series skipped", "channel=voice", "rows=3", "source=logger_test.go"} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %q in %q", want, line)
		}
	}
}

func TestLoggerJSONFormatAndNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	var buf bytes.Buffer
	if err := SetOutput(&buf); err != nil {
		t.Fatalf("set output: %v", err)
	}
	if err := SetFormat("json"); err != nil {
		t.Fatalf("set format: %v", err)
	}
	defer func() {
		_ = SetFormat("text")
		_ = Init()
	}()

	Named("resolver").With(Bool("non_convergent", true)).Warn(context.Background(), "search exhausted",
		Duration("elapsed", 2*time.Millisecond))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected json record, got %q: %v", buf.String(), err)
	}
	if rec["component"] != "resolver" {
		t.Errorf("expected component=resolver, got %v", rec["component"])
	}
	if rec["non_convergent"] != true {
		t.Errorf("expected non_convergent=true, got %v", rec["non_convergent"])
	}
	if rec["level"] != "WARN" {
		t.Errorf("expected WARN level, got %v", rec["level"])
	}
}

func TestSetLevelString(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q: unexpected error %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestSetFormatRejectsUnknown(t *testing.T) {
	if err := SetFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "dropped")
	if l.Named("x") == nil {
		t.Fatal("named nop logger is nil")
	}
}
