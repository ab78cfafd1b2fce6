package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/wisense/internal/navigation"
	"github.com/roman-kulish/wisense/internal/wifi"
)

const (
	defaultInterval = 500 * time.Millisecond
	defaultWindow   = 300 * time.Second
	defaultViewSpan = 60 * time.Second
	defaultRefresh  = 250 * time.Millisecond

	defaultLogLevel = "info"
	defaultLogFile  = "wisense.log"
	defaultDataDir  = "data"
)

// Config represents the main application configuration
type Config struct {
	Settings Settings       `yaml:"settings"`
	Sampling SamplingConfig `yaml:"sampling"`
	Labels   LabelsConfig   `yaml:"labels"`
	Source   SourceConfig   `yaml:"source"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	UI       UIConfig       `yaml:"ui"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
	LogFile  string `yaml:"logFile"` // relative to the data directory
}

// SamplingConfig controls the acquisition cadence and retention
type SamplingConfig struct {
	Interval TimeDuration `yaml:"interval"`
	Window   TimeDuration `yaml:"window"`
	ViewSpan TimeDuration `yaml:"viewSpan"`
}

// LabelsConfig sets the labels in effect when sampling starts
type LabelsConfig struct {
	Material string `yaml:"material"`
	Band     string `yaml:"band"` // "2.4" or "5"
}

// Initial parses the configured labels.
func (l LabelsConfig) Initial() (wifi.Material, wifi.Band, error) {
	material, err := wifi.ParseMaterial(l.Material)
	if err != nil {
		return "", "", fmt.Errorf("labels.material: %w", err)
	}
	band, err := wifi.ParseBand(l.Band)
	if err != nil {
		return "", "", fmt.Errorf("labels.band: %w", err)
	}
	return material, band, nil
}

// SourceConfig describes the metrics command
type SourceConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Sudo    bool     `yaml:"sudo"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// UIConfig represents terminal UI settings
type UIConfig struct {
	Refresh   TimeDuration `yaml:"refresh"`
	AltScreen bool         `yaml:"altScreen"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel: defaultLogLevel,
			LogFile:  defaultLogFile,
		},
		Sampling: SamplingConfig{
			Interval: TimeDuration(defaultInterval),
			Window:   TimeDuration(defaultWindow),
			ViewSpan: TimeDuration(defaultViewSpan),
		},
		Labels: LabelsConfig{
			Material: wifi.MaterialBaseline.String(),
			Band:     wifi.Band24GHz.String(),
		},
		Source: SourceConfig{
			Command: wifi.Runtime,
			Args:    []string{"info"},
			Sudo:    true,
		},
		Storage: StorageConfig{
			DataDirectory: defaultDataDir,
		},
		UI: UIConfig{
			Refresh:   TimeDuration(defaultRefresh),
			AltScreen: true,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. An empty path
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, config.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Settings.Level(); err != nil {
		errs = append(errs, err)
	}

	interval := c.Sampling.Interval.Duration()
	window := c.Sampling.Window.Duration()
	span := c.Sampling.ViewSpan.Duration()

	if interval <= 0 {
		errs = append(errs, fmt.Errorf("sampling.interval must be positive: %s", interval))
	}
	if window <= 0 {
		errs = append(errs, fmt.Errorf("sampling.window must be positive: %s", window))
	}
	if span < navigation.MinSpan || span > window {
		errs = append(errs, fmt.Errorf("sampling.viewSpan must be between %s and sampling.window (%s): %s", navigation.MinSpan, window, span))
	}
	if _, _, err := c.Labels.Initial(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Source.Command) == "" {
		errs = append(errs, errors.New("source.command must not be empty"))
	}
	if c.UI.Refresh.Duration() <= 0 {
		errs = append(errs, fmt.Errorf("ui.refresh must be positive: %s", c.UI.Refresh.Duration()))
	}

	return errors.Join(errs...)
}

// Level parses the configured log level.
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("settings.logLevel: %w", err)
	}
	return level, nil
}

// TimeDuration is a YAML duration accepting Go syntax ("500ms", "5m") or a
// bare number of seconds ("0.5", "300").
type TimeDuration time.Duration

func (d TimeDuration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := parseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("TimeDuration: failed to parse %q at line %d: %w", value.Value, value.Line, err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
