package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return out
}

func TestNewJSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "info", Format: "json", Output: &buf, ServiceName: "mediafetch-test"})

	log.WithField(FieldJobID, "abc").Info("job created")

	out := decodeLine(t, &buf)
	if out["message"] != "job created" {
		t.Errorf("message = %v", out["message"])
	}
	if out["level"] != "info" {
		t.Errorf("level = %v", out["level"])
	}
	if out["service"] != "mediafetch-test" {
		t.Errorf("service = %v", out["service"])
	}
	if out[FieldJobID] != "abc" {
		t.Errorf("job_id = %v", out[FieldJobID])
	}
	if _, ok := out["timestamp"]; !ok {
		t.Error("missing timestamp key")
	}
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "debug", Output: &buf, ServiceName: "svc"})

	ctx := base.WithContext(context.Background())
	ctx = SetJobID(ctx, "job-1")
	ctx = SetComponent(ctx, "runner")

	if GetJobID(ctx) != "job-1" {
		t.Errorf("GetJobID = %q", GetJobID(ctx))
	}

	With(Fields{FieldCount: 2}).WithDuration(1500 * time.Millisecond).Info(ctx, "done %s", "ok")

	out := decodeLine(t, &buf)
	if out[FieldJobID] != "job-1" || out[FieldComponent] != "runner" {
		t.Errorf("context fields missing: %v", out)
	}
	if out[FieldDurationMs] != float64(1500) {
		t.Errorf("duration_ms = %v", out[FieldDurationMs])
	}
	if out[FieldCount] != float64(2) {
		t.Errorf("count = %v", out[FieldCount])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Error("expected default logger for bare context")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&Config{Level: "warn", Output: &buf})

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}
	log.Warn("shown")
	if buf.Len() == 0 {
		t.Error("warn not logged")
	}
}
