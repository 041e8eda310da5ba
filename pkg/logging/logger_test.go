package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}

	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}

	if cfg.Output == nil {
		t.Error("Expected default output to be set")
	}
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		log      func(zerolog.Logger)
		contains string
		filtered bool
	}{
		{
			name:     "info_level",
			level:    LevelInfo,
			log:      func(l zerolog.Logger) { l.Info().Msg("session opened") },
			contains: "session opened",
		},
		{
			name:     "debug_level",
			level:    LevelDebug,
			log:      func(l zerolog.Logger) { l.Debug().Msg("local cache hit") },
			contains: "local cache hit",
		},
		{
			name:     "debug_filtered_at_warn",
			level:    LevelWarn,
			log:      func(l zerolog.Logger) { l.Debug().Msg("local cache hit") },
			contains: "local cache hit",
			filtered: true,
		},
		{
			name:     "unknown_level_defaults_to_info",
			level:    "verbose",
			log:      func(l zerolog.Logger) { l.Info().Msg("database connected") },
			contains: "database connected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := Setup(Config{Level: tt.level, Output: buf})

			tt.log(logger)

			got := strings.Contains(buf.String(), tt.contains)
			if tt.filtered && got {
				t.Errorf("Expected message to be filtered, got %q", buf.String())
			}
			if !tt.filtered && !got {
				t.Errorf("Expected output to contain %q, got %q", tt.contains, buf.String())
			}
		})
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger.Info().Msg("pretty message")

	if strings.Contains(buf.String(), `"message"`) {
		t.Errorf("Expected console output, got JSON: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "pretty message") {
		t.Errorf("Expected message in output, got %q", buf.String())
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger(parent, "session")
	logger.Info().Msg("filtered by the parent level")
	logger.Warn().Msg("component message")

	if !strings.Contains(buf.String(), `"component":"session"`) {
		t.Errorf("Expected component field, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "filtered by the parent level") {
		t.Errorf("Expected the parent level to apply, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[LogLevel]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
	}

	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
