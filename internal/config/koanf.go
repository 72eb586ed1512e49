// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/trolleyhq/trolley/internal/logging"
)

// DefaultConfigPaths are searched in order when TROLLEY_CONFIG_PATH is
// not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trolley/config.yaml",
	"/etc/trolley/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "TROLLEY_CONFIG_PATH"

// envPrefix namespaces Trolley's environment variables.
const envPrefix = "TROLLEY_"

// envKeyMap maps environment variable names (lowercased, prefix
// stripped) onto config keys. Unmapped variables are ignored.
var envKeyMap = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"nats_embedded":         "nats.embedded",
	"nats_url":              "nats.url",
	"nats_host":             "nats.host",
	"nats_port":             "nats.port",
	"nats_store_dir":        "nats.store_dir",
	"nats_stream_max_age":   "nats.stream_max_age",
	"nats_topic":            "nats.topic",
	"nats_durable_name":     "nats.durable_name",
	"nats_queue_group":      "nats.queue_group",
	"history_path":          "history.path",
	"history_sync_writes":   "history.sync_writes",
	"cors_origins":          "security.cors_origins",
	"rate_limit_enabled":    "security.rate_limit_enabled",
	"rate_limit_per_minute": "security.rate_limit_per_minute",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
	"log_caller":            "logging.caller",
}

// sliceConfigPaths hold comma-separated strings in env form that must
// unmarshal into []string.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// Load assembles the configuration: defaults, then the config file if
// one exists, then environment variables. The result is validated.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: compiled defaults.
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional YAML file.
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		logging.Info().Str("path", path).Msg("Loaded config file")
	}

	// Layer 3: environment variables.
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	processSliceFields(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if mapped, ok := envKeyMap[key]; ok {
		return mapped
	}
	return ""
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// processSliceFields converts comma-separated strings from the env
// layer into slices, leaving values that are already slices alone.
func processSliceFields(k *koanf.Koanf) {
	for _, path := range sliceConfigPaths {
		if !k.Exists(path) {
			continue
		}
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				values = append(values, trimmed)
			}
		}
		_ = k.Set(path, values)
	}
}
