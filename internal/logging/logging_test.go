package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetup_ErrorIncludesStackTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("INFO", &buf)
	logger.Error("boom", "job_number", "TOW 001")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if rec["service"] != ServiceName {
		t.Errorf("expected service=%s, got %v", ServiceName, rec["service"])
	}
	if _, ok := rec["stacktrace"]; !ok {
		t.Error("expected stacktrace on error record")
	}
	if rec["job_number"] != "TOW 001" {
		t.Errorf("expected job_number attribute, got %v", rec["job_number"])
	}
}

func TestSetup_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("WARN", &buf)
	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %s", buf.String())
	}
}
