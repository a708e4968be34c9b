package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_ComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentWorker, Writer: &buf})

	logger.DebugContext(context.Background(), "hidden")
	logger.InfoContext(context.Background(), "visible", "n", 1)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0][FieldComponent] != ComponentWorker || lines[0]["msg"] != "visible" {
		t.Errorf("unexpected record: %v", lines[0])
	}

	if got := logger.WithComponent(ComponentHTTP).Component(); got != ComponentHTTP {
		t.Errorf("Component() = %q", got)
	}
}

func TestFromContextFallback(t *testing.T) {
	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Errorf("Component() = %q, want unknown", got)
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Writer: &buf})

	handler := Middleware(logger)(
		RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
			AccessLog(func(*http.Request) string { return "10.0.0.1" })(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				}))))

	req := httptest.NewRequest(http.MethodGet, "/api/expenses/9?x=1", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	rec := lines[0]
	if rec["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", rec["level"])
	}
	if rec[FieldRequestID] != "req-1" || rec[FieldClientIP] != "10.0.0.1" {
		t.Errorf("missing request fields: %v", rec)
	}
	if rec[FieldStatusCode] != float64(http.StatusNotFound) || rec[FieldSuccess] != false {
		t.Errorf("status fields = %v %v", rec[FieldStatusCode], rec[FieldSuccess])
	}
}

func TestStructuredLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Component: ComponentHTTP, Writer: &buf})

	NewStructuredLogger(logger).LogError(context.Background(), "Request failed", errors.New("boom"), "save_expense", nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0][FieldError] != "boom" || lines[0][FieldOperation] != "save_expense" || lines[0][FieldComponent] != ComponentHTTP {
		t.Errorf("unexpected record: %v", lines[0])
	}
}
