// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the asset store
// binaries.
//
// Configuration is loaded from a single YAML file specified by:
//   - ASSETSTORE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
// The values here are validated once at process start; the core
// store treats them as already-validated inputs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/assetstore/lib/assetstore"
)

// Config is the master configuration for the asset store.
type Config struct {
	// Storage configures the on-disk store.
	Storage StorageConfig `yaml:"storage"`

	// Service configures the Unix-socket service.
	Service ServiceConfig `yaml:"service"`
}

// StorageConfig configures the store root and write-path compression.
type StorageConfig struct {
	// Root is the base directory for asset data.
	Root string `yaml:"root"`

	// Compression selects the codec applied to new payloads. It
	// only affects writes — reads detect each payload's codec from
	// its bytes, so this value may change between restarts without
	// migrating existing assets.
	Compression CompressionConfig `yaml:"compression"`

	// Screenshots enables persistence of crawler page screenshots.
	Screenshots bool `yaml:"screenshots"`
}

// CompressionConfig names a codec and its level.
type CompressionConfig struct {
	// Codec is "zstd", "lz4", "gzip", or "none". An empty or
	// unrecognized value stores payloads uncompressed.
	Codec string `yaml:"codec"`

	// Level is the compression level, interpreted per codec and
	// clamped to the codec's valid range.
	Level int `yaml:"level"`
}

// ServiceConfig configures the asset service daemon.
type ServiceConfig struct {
	// Socket is the Unix socket path the service listens on.
	Socket string `yaml:"socket"`
}

// knownCodecs are the names accepted by Validate. The store itself
// tolerates unknown names (treating them as "none"), but a config
// file naming a codec that does not exist is almost certainly a typo
// worth failing loudly on.
var knownCodecs = map[string]bool{
	"":     true,
	"none": true,
	"zstd": true,
	"lz4":  true,
	"gzip": true,
}

// Load reads and validates configuration. When explicitPath is
// empty, the ASSETSTORE_CONFIG environment variable is consulted;
// if that is also empty, Load fails.
func Load(explicitPath string) (*Config, error) {
	path := explicitPath
	if path == "" {
		path = os.Getenv("ASSETSTORE_CONFIG")
	}
	if path == "" {
		return nil, fmt.Errorf("no config file: set ASSETSTORE_CONFIG or pass --config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root is required")
	}
	if !knownCodecs[c.Storage.Compression.Codec] {
		return fmt.Errorf("storage.compression.codec %q is not one of none, zstd, lz4, gzip",
			c.Storage.Compression.Codec)
	}
	if c.Storage.Compression.Level < 0 {
		return fmt.Errorf("storage.compression.level must not be negative")
	}
	return nil
}

// StoreOptions translates the storage section into store options.
// The logger is left nil for the caller to fill in.
func (c *Config) StoreOptions() assetstore.Options {
	return assetstore.Options{
		Codec:       assetstore.ParseCodec(c.Storage.Compression.Codec),
		Level:       c.Storage.Compression.Level,
		Screenshots: c.Storage.Screenshots,
	}
}
