package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(buf *bytes.Buffer, level string) *Logger {
	return New(&Config{Level: level, Format: "json", Output: buf, ServiceName: "test-svc"})
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &out); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	return out
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, "info")
	l.WithField(FieldSlot, "table_metadata").Info("hello")

	line := lastLine(t, &buf)
	if line["message"] != "hello" || line["service"] != "test-svc" || line["slot"] != "table_metadata" {
		t.Errorf("unexpected line %v", line)
	}
	if _, ok := line["timestamp"]; !ok {
		t.Error("missing timestamp")
	}

	buf.Reset()
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written at info level: %s", buf.String())
	}
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf, "debug").WithContext(context.Background())
	ctx = WithFields(ctx, Fields{FieldRequestID: "req-1"})
	ctx = SetRunID(ctx, "run-1")

	if GetRequestID(ctx) != "req-1" || GetRunID(ctx) != "run-1" {
		t.Errorf("fields not propagated: %v", GetFields(ctx))
	}

	CtxWarn(SetStage(ctx, "embedding"), "slow %d", 3)
	line := lastLine(t, &buf)
	if line["message"] != "slow 3" || line["run_id"] != "run-1" || line["stage"] != "embedding" || line["level"] != "warning" {
		t.Errorf("unexpected line %v", line)
	}
	if _, ok := GetFields(ctx)[FieldStage]; ok {
		t.Error("SetStage must not modify the parent context")
	}
}

func TestEntry(t *testing.T) {
	var buf bytes.Buffer
	ctx := newBufferLogger(&buf, "info").WithContext(context.Background())

	base := With(Fields{FieldStatus: 200})
	base.WithCount(4).WithElapsed(time.Now().Add(-50 * time.Millisecond)).Info(ctx, "done")

	line := lastLine(t, &buf)
	if line[FieldStatus] != float64(200) || line[FieldCount] != float64(4) {
		t.Errorf("unexpected line %v", line)
	}
	if ms, ok := line[FieldDurationMs].(float64); !ok || ms < 50 {
		t.Errorf("duration_ms = %v", line[FieldDurationMs])
	}
	if _, ok := base.fields[FieldCount]; ok {
		t.Error("WithCount must not modify the receiver")
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Error("FromContext must fall back to the default logger")
	}

	prev := GetDefault()
	defer SetDefaultLogger(prev)
	var buf bytes.Buffer
	SetDefaultLogger(newBufferLogger(&buf, "info"))
	SetDefaultLogger(nil)
	CtxInfo(context.Background(), "via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Error("default logger not used")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_MAX_SIZE", "not-a-number")
	t.Setenv("LOG_FILE_ONLY", "true")

	cfg := ConfigFromEnv()
	if cfg.Level != "debug" || cfg.File.MaxSize != 100 || !cfg.File.Only || cfg.ServiceName != defaultServiceName {
		t.Errorf("unexpected config %+v", cfg)
	}
}
