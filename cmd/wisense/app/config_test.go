package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/wisense/internal/wifi"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if config.Sampling.Interval.Duration() != 500*time.Millisecond {
		t.Errorf("expected 500ms interval, got %s", config.Sampling.Interval)
	}
	if config.Sampling.Window.Duration() != 300*time.Second {
		t.Errorf("expected 5m window, got %s", config.Sampling.Window)
	}
	if config.Sampling.ViewSpan.Duration() != 60*time.Second {
		t.Errorf("expected 1m view span, got %s", config.Sampling.ViewSpan)
	}
	if config.Source.Command != "wdutil" || len(config.Source.Args) != 1 || !config.Source.Sudo {
		t.Errorf("unexpected source defaults %+v", config.Source)
	}
	if m, b, err := config.Labels.Initial(); err != nil || m != wifi.MaterialBaseline || b != wifi.Band24GHz {
		t.Errorf("expected baseline on 2.4 GHz, got %s %s (%v)", m, b, err)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
settings:
  logLevel: debug
sampling:
  interval: 0.25
  window: 10m
  viewSpan: 90
labels:
  material: Glass
  band: "5GHz"
source:
  command: cat
  args: [testdata/wdutil.txt]
  sudo: false
metrics:
  listen: ":9109"
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if config.Sampling.Interval.Duration() != 250*time.Millisecond {
		t.Errorf("expected bare seconds parsed, got %s", config.Sampling.Interval)
	}
	if config.Sampling.Window.Duration() != 10*time.Minute {
		t.Errorf("expected 10m window, got %s", config.Sampling.Window)
	}
	if config.Sampling.ViewSpan.Duration() != 90*time.Second {
		t.Errorf("expected 90s span, got %s", config.Sampling.ViewSpan)
	}
	if config.Source.Sudo || config.Source.Command != "cat" {
		t.Errorf("unexpected source %+v", config.Source)
	}
	if config.Metrics.Listen != ":9109" {
		t.Errorf("unexpected metrics listen %q", config.Metrics.Listen)
	}
	if m, b, err := config.Labels.Initial(); err != nil || m != wifi.MaterialGlass || b != wifi.Band5GHz {
		t.Errorf("expected glass on 5 GHz, got %s %s (%v)", m, b, err)
	}
	if level, _ := config.Settings.Level(); level != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", level)
	}

	// untouched sections keep their defaults
	if config.Storage.DataDirectory != "data" || config.UI.Refresh.Duration() != 250*time.Millisecond {
		t.Errorf("expected defaults for omitted sections, got %+v %+v", config.Storage, config.UI)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"zero interval", "sampling:\n  interval: 0\n"},
		{"span above window", "sampling:\n  window: 30s\n  viewSpan: 1m\n"},
		{"span below minimum", "sampling:\n  viewSpan: 5s\n"},
		{"empty command", "source:\n  command: \"\"\n"},
		{"bad level", "settings:\n  logLevel: loud\n"},
		{"bad duration", "sampling:\n  interval: soon\n"},
		{"unknown material", "labels:\n  material: granite\n"},
		{"unknown band", "labels:\n  band: \"6\"\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
