// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the codegraph YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/codegraph/services/codegraph/editor"
	"github.com/AleutianAI/codegraph/services/codegraph/project"
	"github.com/AleutianAI/codegraph/services/codegraph/pysource"
	"github.com/AleutianAI/codegraph/services/codegraph/resolve"
	"github.com/AleutianAI/codegraph/services/codegraph/telemetry"
)

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Config is the whole configuration file.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Editor    EditorConfig    `yaml:"editor"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Project   ProjectConfig   `yaml:"project"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir,omitempty"` // empty disables the log file
	JSON  bool   `yaml:"json"`
}

type EditorConfig struct {
	Command string   `yaml:"command" validate:"required"`
	Args    []string `yaml:"args" validate:"min=1,dive,required"` // {file} and {line} are substituted
}

type ResolverConfig struct {
	MaxFileSize  int64 `yaml:"max_file_size" validate:"gt=0"`
	ExcerptLines int   `yaml:"excerpt_lines" validate:"gte=1,lte=200"`
}

type ProjectConfig struct {
	FileName string `yaml:"file_name" validate:"required,excludesall=/\\"`
}

type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"required,hostname_port"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// CacheConfig controls the persistent parse cache. It is off by default;
// when off every resolution reparses the files it scans. An empty Dir
// places the cache in a "cache" directory next to the config file.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir,omitempty"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Editor: EditorConfig{
			Command: editor.DefaultCommand,
			Args:    append([]string(nil), editor.DefaultArgs...),
		},
		Resolver: ResolverConfig{
			MaxFileSize:  pysource.DefaultMaxFileSize,
			ExcerptLines: resolve.DefaultExcerptLines,
		},
		Project: ProjectConfig{FileName: project.DefaultFileName},
		Telemetry: TelemetryConfig{
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterNone,
			OTLPEndpoint:   "localhost:4317",
		},
		Server: ServerConfig{Addr: "127.0.0.1:7411"},
		Cache:  CacheConfig{TTL: 7 * 24 * time.Hour},
	}
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultPath is ~/.codegraph/codegraph.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".codegraph", "codegraph.yaml"), nil
}

// Load reads path. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrCreate loads path, writing the default configuration there
// first if it does not exist.
func LoadOrCreate(path string, logger *slog.Logger) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if logger != nil {
			logger.Info("first run detected, creating config", slog.String("path", path))
		}
		if err := createDefault(path); err != nil {
			return Config{}, err
		}
	}
	return Load(path)
}

// CacheDir returns where the parse cache lives for a config loaded
// from configPath.
func (c Config) CacheDir(configPath string) string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(filepath.Dir(configPath), "cache")
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
