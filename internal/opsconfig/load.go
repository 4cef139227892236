package opsconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML ops config file, validates it against known
// keys, and returns the resulting Config. Unknown keys are a fatal error
// with a "did you mean?" suggestion.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("opsconfig: loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opsconfig: reading %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("opsconfig: parsing %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML ops config file if it exists, otherwise
// returns a Config populated with built-in defaults.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("opsconfig: config file not found, using defaults", "path", path)
		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// ResolveConfigPath determines the ops config file path: CLI flag > env var
// > platform default.
func ResolveConfigPath(env EnvOverrides, cli CLIOverrides) string {
	path := DefaultConfigPath()

	if env.ConfigPath != "" {
		path = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		path = cli.ConfigPath
	}

	return path
}

// Resolve applies the full four-layer override chain — CLI flag >
// environment variable > TOML file > built-in default — and returns the
// fully-parsed Resolved config ready to wire into the compression pool,
// pipeline, watcher, and free-space check.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Resolved, error) {
	path := ResolveConfigPath(env, cli)

	cfg, err := LoadOrDefault(path, logger)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg, env); err != nil {
		return nil, err
	}

	applyCLIOverrides(cfg, cli)

	return resolve(cfg)
}

func applyEnvOverrides(cfg *Config, env EnvOverrides) error {
	if env.CompressWorkers != "" {
		n, err := strconv.Atoi(env.CompressWorkers)
		if err != nil {
			return fmt.Errorf("opsconfig: %s: %w", EnvCompressWorkers, err)
		}

		cfg.Compression.Workers = n
	}

	if env.UploadWorkers != "" {
		n, err := strconv.Atoi(env.UploadWorkers)
		if err != nil {
			return fmt.Errorf("opsconfig: %s: %w", EnvUploadWorkers, err)
		}

		cfg.Pipeline.UploadWorkers = n
	}

	if env.BandwidthLimit != "" {
		cfg.Network.BandwidthLimit = env.BandwidthLimit
	}

	return nil
}

func applyCLIOverrides(cfg *Config, cli CLIOverrides) {
	if cli.CompressWorkers != nil {
		cfg.Compression.Workers = *cli.CompressWorkers
	}

	if cli.UploadWorkers != nil {
		cfg.Pipeline.UploadWorkers = *cli.UploadWorkers
	}

	if cli.BandwidthLimit != "" {
		cfg.Network.BandwidthLimit = cli.BandwidthLimit
	}
}
