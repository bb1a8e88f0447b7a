package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Level = %s, want info", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Pretty should default to JSON output")
	}
	if cfg.Output == nil {
		t.Error("Output should default to stderr")
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  []string
	}{
		{LevelDebug, []string{"stale response", "fetch settled", "retry exhausted", "request failed"}},
		{LevelInfo, []string{"fetch settled", "retry exhausted", "request failed"}},
		{LevelWarn, []string{"retry exhausted", "request failed"}},
		{LevelError, []string{"request failed"}},
		{LevelDisabled, nil},
	}

	all := []string{"stale response", "fetch settled", "retry exhausted", "request failed"}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})
			defer Setup(Config{Level: LevelInfo, Output: &bytes.Buffer{}})

			logger.Debug().Msg("stale response")
			logger.Info().Msg("fetch settled")
			logger.Warn().Msg("retry exhausted")
			logger.Error().Msg("request failed")

			output := buf.String()
			for _, msg := range all {
				wanted := false
				for _, w := range tt.want {
					if w == msg {
						wanted = true
					}
				}
				if got := strings.Contains(output, msg); got != wanted {
					t.Errorf("level %s: output contains %q = %v, want %v", tt.level, msg, got, wanted)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input LogLevel
		want  zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{LevelDisabled, zerolog.Disabled},
		{"trace", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLevelString(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" INFO ", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"off", LevelDisabled, false},
		{"none", LevelDisabled, false},
		{"verbose", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_ListFields(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelDebug, Output: buf})
	defer Setup(Config{Level: LevelInfo, Output: &bytes.Buffer{}})

	logger := NewLogger("listfetch")
	logger.Debug().
		Str("list", "articles").
		Uint64("sequence", 7).
		Int("page", 2).
		Str("request_id", "3f2b").
		Msg("Discarding stale list response")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not one JSON object: %v (%q)", err, buf.String())
	}

	want := map[string]any{
		"level":      "debug",
		"component":  "listfetch",
		"list":       "articles",
		"sequence":   float64(7),
		"page":       float64(2),
		"request_id": "3f2b",
		"message":    "Discarding stale list response",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestSetup_PrettyOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Pretty: true, NoColor: true, Output: buf})
	defer Setup(Config{Level: LevelInfo, Output: &bytes.Buffer{}})

	logger := NewLogger("cli")
	logger.Info().Str("list", "threads").Msg("Export complete")

	output := buf.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("expected console output, got JSON: %q", output)
	}
	for _, want := range []string{"Export complete", "component=cli", "list=threads"} {
		if !strings.Contains(output, want) {
			t.Errorf("console output missing %q: %q", want, output)
		}
	}
}
