// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

// Package config loads and validates Trolley's configuration from three
// layers: compiled defaults, an optional YAML file, and environment
// variables, each layer overriding the previous one.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	NATS     NATSConfig     `koanf:"nats"`
	History  HistoryConfig  `koanf:"history"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `koanf:"host" validate:"required"`
	Port         int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// NATSConfig configures the event log.
type NATSConfig struct {
	// Embedded runs a NATS server inside the process. When false, URL
	// must point at an external server.
	Embedded bool   `koanf:"embedded"`
	URL      string `koanf:"url"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"min=0,max=65535"`
	StoreDir string `koanf:"store_dir"`

	// StreamMaxAge bounds how much history the stream retains, and
	// therefore how far back a restart replays.
	StreamMaxAge time.Duration `koanf:"stream_max_age"`

	Topic       string `koanf:"topic" validate:"required"`
	DurableName string `koanf:"durable_name" validate:"required"`
	QueueGroup  string `koanf:"queue_group" validate:"required"`
}

// HistoryConfig configures the append-only history store.
type HistoryConfig struct {
	Path       string `koanf:"path" validate:"required"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// SecurityConfig configures CORS and rate limiting.
type SecurityConfig struct {
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitEnabled   bool `koanf:"rate_limit_enabled"`
	RateLimitPerMinute int  `koanf:"rate_limit_per_minute" validate:"min=0"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         4000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		NATS: NATSConfig{
			Embedded:     true,
			Host:         "127.0.0.1",
			Port:         4222,
			StoreDir:     "./data/nats",
			StreamMaxAge: 7 * 24 * time.Hour,
			Topic:        "shop.events",
			DurableName:  "shop-processor",
			QueueGroup:   "aggregators",
		},
		History: HistoryConfig{
			Path:       "./data/history",
			SyncWrites: false,
		},
		Security: SecurityConfig{
			CORSOrigins:        []string{"*"},
			RateLimitEnabled:   true,
			RateLimitPerMinute: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.NATS.Embedded && c.NATS.URL == "" {
		return fmt.Errorf("invalid configuration: nats.url is required when nats.embedded is false")
	}
	return nil
}
