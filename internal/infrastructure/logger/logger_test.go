package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"debug", LevelDebug, false},
		{"Warning", LevelWarn, false},
		{"ERROR", LevelError, false},
		{"critical", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogrusLogger_JSONOutputCarriesFields(t *testing.T) {
	cfg, err := NewConfig("debug", "json", "stdout", "", "test")
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	log := NewLogrusLogger(cfg)

	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithField("component", "hub").WithError(errors.New("boom")).Warn("backplane down")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line["message"] != "backplane down" {
		t.Errorf("message = %v", line["message"])
	}
	if line["component"] != "hub" {
		t.Errorf("component = %v", line["component"])
	}
	if line["error"] != "boom" {
		t.Errorf("error = %v", line["error"])
	}
	if line["environment"] != "test" {
		t.Errorf("environment = %v", line["environment"])
	}
}

func TestLogrusLogger_DerivedLoggerHonoursLevel(t *testing.T) {
	cfg, _ := NewConfig("info", "text", "stdout", "", "")
	root := NewLogrusLogger(cfg)
	child := root.WithField("k", "v")

	var buf bytes.Buffer
	root.SetOutput(&buf)

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %q", buf.String())
	}

	root.SetLevel(LevelDebug)
	child.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected debug line after SetLevel, got %q", buf.String())
	}
}
