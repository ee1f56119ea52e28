// Package config loads server settings from defaults, an optional YAML file
// and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/marker-tools-mcp/internal/aruco"
	"github.com/ironsheep/marker-tools-mcp/internal/logger"
)

// Environment variables read by Load.
const (
	EnvConfigFile      = "MARKER_MCP_CONFIG"
	EnvLogLevel        = "MARKER_MCP_LOG_LEVEL"
	EnvLogFormat       = "MARKER_MCP_LOG_FORMAT"
	EnvSlowFrameMs     = "MARKER_MCP_SLOW_FRAME_MS"
	EnvLogEvery        = "MARKER_MCP_LOG_EVERY"
	EnvThresholdRadius = "MARKER_MCP_THRESHOLD_RADIUS"
	EnvThresholdC      = "MARKER_MCP_THRESHOLD_C"
)

// Config holds all server settings.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Detector aruco.Params   `yaml:"detector"`
}

// LogConfig selects log verbosity and output format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// AnalyzerConfig tunes the frame analysis loop.
type AnalyzerConfig struct {
	SlowFrameMs int `yaml:"slow_frame_ms"` // frames slower than this are reported
	LogEvery    int `yaml:"log_every"`     // frames between periodic debug lines
}

// SlowFrameThreshold returns SlowFrameMs as a duration.
func (a AnalyzerConfig) SlowFrameThreshold() time.Duration {
	return time.Duration(a.SlowFrameMs) * time.Millisecond
}

// LoggerOptions converts the log settings for logger.New.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{Level: c.Log.Level, Format: c.Log.Format}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Analyzer: AnalyzerConfig{
			SlowFrameMs: 50,
			LogEvery:    60,
		},
		Detector: aruco.DefaultParams(),
	}
}

// Load builds the configuration from defaults, the YAML file named by
// MARKER_MCP_CONFIG (if set) and environment overrides, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		err = cfg.decodeYAML(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// decodeYAML overlays the document in r onto c. Unknown keys are errors so
// typos do not silently fall back to defaults.
func (c *Config) decodeYAML(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := getEnv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getEnv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if err := envInt(EnvSlowFrameMs, &c.Analyzer.SlowFrameMs); err != nil {
		return err
	}
	if err := envInt(EnvLogEvery, &c.Analyzer.LogEvery); err != nil {
		return err
	}
	if err := envInt(EnvThresholdRadius, &c.Detector.ThresholdRadius); err != nil {
		return err
	}
	if v := getEnv(EnvThresholdC); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvThresholdC, v)
		}
		c.Detector.ThresholdC = f
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log format must be text or json (got %q)", c.Log.Format)
	}
	if c.Analyzer.SlowFrameMs < 0 {
		return fmt.Errorf("slow_frame_ms must be >= 0 (got %d)", c.Analyzer.SlowFrameMs)
	}
	if c.Analyzer.LogEvery < 1 {
		return fmt.Errorf("log_every must be >= 1 (got %d)", c.Analyzer.LogEvery)
	}
	if err := c.Detector.Validate(); err != nil {
		return fmt.Errorf("detector: %w", err)
	}
	return nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envInt(key string, dst *int) error {
	v := getEnv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, v)
	}
	*dst = n
	return nil
}
