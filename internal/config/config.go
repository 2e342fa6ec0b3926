/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads and validates the configuration for a SmartWatts
// engine pair (CPU scope, DRAM scope) sharing a single CPU topology.
// Validate performs the construction-time "Fatal" checks on these
// fields (RealTimeMode, a plain switch, has none); everything else is
// recovered at tick granularity inside the engine itself.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type (
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	}

	// Topology describes the CPU package's frequency range, shared by
	// the CPU and DRAM engines running against the same socket.
	Topology struct {
		TDP          float64 `yaml:"cpu_tdp"`
		BaseClockMHz int     `yaml:"cpu_base_clock"`
		RatioMin     int     `yaml:"ratio_min"`
		RatioBase    int     `yaml:"ratio_base"`
		RatioMax     int     `yaml:"ratio_max"`
	}

	// Scope holds the tuning knobs of a single engine instance (one per
	// socket per RAPL domain).
	Scope struct {
		RAPLEvent          string  `yaml:"rapl_event"`
		ReportsFrequencyMS int     `yaml:"reports_frequency_ms"`
		ErrorThresholdW    float64 `yaml:"error_threshold_w"`
		MinSamplesRequired int     `yaml:"min_samples_required"`
		HistoryWindowSize  int     `yaml:"history_window_size"`
		ErrorWindowSize    int     `yaml:"error_window_size"`
		ErrorWindowMethod  string  `yaml:"error_window_method"` // "median" or "mean"
		RealTimeMode       bool    `yaml:"real_time_mode"`
	}

	Config struct {
		Log      Log      `yaml:"log"`
		Topology Topology `yaml:"topology"`
		CPU      Scope    `yaml:"cpu"`
		DRAM     Scope    `yaml:"dram"`
	}
)

const (
	// Flags
	LogLevelFlag  = "log.level"
	LogFormatFlag = "log.format"
	RealTimeFlag  = "real-time"
)

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	cfg := &Config{
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Topology: Topology{
			TDP:          125,
			BaseClockMHz: 100,
			RatioMin:     8,
			RatioBase:    20,
			RatioMax:     42,
		},
		CPU: Scope{
			RAPLEvent:          "RAPL_ENERGY_PKG",
			ReportsFrequencyMS: 1000,
			ErrorThresholdW:    2.0,
			MinSamplesRequired: 10,
			HistoryWindowSize:  30,
			ErrorWindowSize:    15,
			ErrorWindowMethod:  "median",
		},
		DRAM: Scope{
			RAPLEvent:          "RAPL_ENERGY_DRAM",
			ReportsFrequencyMS: 1000,
			ErrorThresholdW:    1.0,
			MinSamplesRequired: 10,
			HistoryWindowSize:  30,
			ErrorWindowSize:    15,
			ErrorWindowMethod:  "median",
		},
	}

	return cfg
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.sanitize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromFile loads configuration from a file
func FromFile(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Load(file)
}

type ConfigUpdaterFn func(*Config) error

// RegisterFlags registers command-line flags with kingpin app
// and returns ConfigUpdaterFn that updates the config from parsed flags
// as command line arguments override config file settings
func RegisterFlags(app *kingpin.Application) ConfigUpdaterFn {
	// track flags that were explicitly set
	flagsSet := map[string]bool{}

	app.PreAction(func(ctx *kingpin.ParseContext) error {
		// Clear the map in case this function is called multiple times
		flagsSet = map[string]bool{}

		for _, element := range ctx.Elements {
			if flag, ok := element.Clause.(*kingpin.FlagClause); ok && element.Value != nil {
				flagsSet[flag.Model().Name] = true
			}
		}
		return nil
	})

	// Logging
	logLevel := app.Flag(LogLevelFlag, "Logging level: debug, info, warn, error").Default("info").Enum("debug", "info", "warn", "error")
	logFormat := app.Flag(LogFormatFlag, "Logging format: text or json").Default("text").Enum("text", "json")

	// Engine
	realTime := app.Flag(RealTimeFlag, "use the short tick-delay window for both engines").Bool()

	return func(cfg *Config) error {
		// Logging settings
		if flagsSet[LogLevelFlag] {
			cfg.Log.Level = *logLevel
		}

		if flagsSet[LogFormatFlag] {
			cfg.Log.Format = *logFormat
		}

		if flagsSet[RealTimeFlag] {
			cfg.CPU.RealTimeMode = *realTime
			cfg.DRAM.RealTimeMode = *realTime
		}

		cfg.sanitize()
		return cfg.Validate()
	}
}

func (c *Config) sanitize() {
	c.Log.Level = strings.TrimSpace(c.Log.Level)
	c.Log.Format = strings.TrimSpace(c.Log.Format)
	c.CPU.RAPLEvent = strings.TrimSpace(c.CPU.RAPLEvent)
	c.DRAM.RAPLEvent = strings.TrimSpace(c.DRAM.RAPLEvent)
	c.CPU.ErrorWindowMethod = strings.ToLower(strings.TrimSpace(c.CPU.ErrorWindowMethod))
	c.DRAM.ErrorWindowMethod = strings.ToLower(strings.TrimSpace(c.DRAM.ErrorWindowMethod))
}

// Validate checks for configuration errors
func (c *Config) Validate() error {
	var errs []string
	{ // log level

		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}

		// Validate logging settings
		if _, valid := validLogLevels[c.Log.Level]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
		}
	}
	{ // log format
		validFormats := map[string]bool{
			"text": true,
			"json": true,
		}
		if _, valid := validFormats[c.Log.Format]; !valid {
			errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
		}
	}
	{ // topology
		if c.Topology.RatioMax < c.Topology.RatioMin {
			errs = append(errs, "topology: ratio_max must be >= ratio_min (empty frequency set)")
		}
		if c.Topology.RatioBase < c.Topology.RatioMin || c.Topology.RatioBase > c.Topology.RatioMax {
			errs = append(errs, "topology: ratio_base must be within [ratio_min, ratio_max]")
		}
		if c.Topology.BaseClockMHz <= 0 {
			errs = append(errs, "topology: cpu_base_clock must be positive")
		}
		if c.Topology.TDP <= 0 {
			errs = append(errs, "topology: cpu_tdp must be positive")
		}
	}

	errs = append(errs, validateScope("cpu", c.CPU)...)
	errs = append(errs, validateScope("dram", c.DRAM)...)

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, ", "))
	}

	return nil
}

func validateScope(name string, s Scope) []string {
	var errs []string

	if s.RAPLEvent == "" {
		errs = append(errs, fmt.Sprintf("%s: rapl_event must not be empty", name))
	}
	if s.ReportsFrequencyMS <= 0 {
		errs = append(errs, fmt.Sprintf("%s: reports_frequency_ms must be positive", name))
	}
	if s.ErrorThresholdW <= 0 {
		errs = append(errs, fmt.Sprintf("%s: error_threshold_w must be positive", name))
	}
	if s.MinSamplesRequired <= 0 {
		errs = append(errs, fmt.Sprintf("%s: min_samples_required must be positive", name))
	}
	if s.HistoryWindowSize <= 0 {
		errs = append(errs, fmt.Sprintf("%s: history_window_size must be positive", name))
	}
	if s.ErrorWindowSize <= 0 {
		errs = append(errs, fmt.Sprintf("%s: error_window_size must be positive", name))
	}
	if s.ErrorWindowMethod != "median" && s.ErrorWindowMethod != "mean" {
		errs = append(errs, fmt.Sprintf("%s: error_window_method must be \"median\" or \"mean\", got %q", name, s.ErrorWindowMethod))
	}
	if s.MinSamplesRequired > s.HistoryWindowSize {
		errs = append(errs, fmt.Sprintf("%s: min_samples_required must be <= history_window_size", name))
	}

	return errs
}

func (c *Config) String() string {
	bytes, err := yaml.Marshal(c)
	if err == nil {
		return string(bytes)
	}
	// NOTE:  this code path should not happen but if it does (i.e if yaml marshal) fails
	// for some reason, manually build the string
	return c.manualString()
}

func (c *Config) manualString() string {
	cfgs := []struct {
		Name  string
		Value string
	}{
		{LogLevelFlag, c.Log.Level},
		{LogFormatFlag, c.Log.Format},
	}
	sb := strings.Builder{}

	for _, cfg := range cfgs {
		sb.WriteString(cfg.Name)
		sb.WriteString(": ")
		sb.WriteString(cfg.Value)
		sb.WriteString("\n")
	}

	return sb.String()
}
