// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for enomcrypt.
//
// Configuration only supplies defaults; command-line flags win over it.
//
// Sources (later wins):
//   - Built-in defaults
//   - ~/.enomcrypt/config.toml (or the file given with --config)
//   - ENOMCRYPT_* environment variables
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/enomcrypt/internal/model"
	"github.com/jeranaias/enomcrypt/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete enomcrypt configuration.
type Config struct {
	// Threads is the worker pool size.
	Threads int `toml:"threads"`
	// Mode is "gcm" or "ecb".
	Mode string `toml:"mode"`
	// KDF is "argon2id" or "pbkdf2".
	KDF string `toml:"kdf"`
	// Iterations is the KDF cost; 0 means the KDF's default.
	Iterations uint32 `toml:"iterations"`
	Verbose    bool   `toml:"verbose"`

	Shred    ShredConfig    `toml:"shred"`
	Manifest ManifestConfig `toml:"manifest"`
	Log      LogConfig      `toml:"log"`
}

// ShredConfig contains secure disposal defaults.
type ShredConfig struct {
	Enabled          bool `toml:"enabled"`
	RandomIterations int  `toml:"random_iterations"`
	RenameTimes      int  `toml:"rename_times"`
}

// ManifestConfig locates the anonymization name manifest.
type ManifestConfig struct {
	Path string `toml:"path"`
}

// LogConfig contains diagnostic log settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	threads := runtime.NumCPU()
	if threads > 8 {
		threads = 8
	}
	return &Config{
		Threads:    threads,
		Mode:       "gcm",
		KDF:        "argon2id",
		Iterations: 0,
		Shred: ShredConfig{
			Enabled:          false,
			RandomIterations: 3,
			RenameTimes:      3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the enomcrypt configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".enomcrypt"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads ~/.enomcrypt/config.toml if it exists, falling back to
// defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific TOML file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values. Unknown keys are an error.
func LoadTOML(cfg *Config, path string) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// SaveTOML writes cfg to path with owner-only permissions, creating the
// parent directory if needed.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# enomcrypt configuration file")
	fmt.Fprintln(&buf, "# Command-line flags override every value here.")
	fmt.Fprintln(&buf, "")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - ENOMCRYPT_THREADS: overrides threads
//   - ENOMCRYPT_MODE: overrides mode
//   - ENOMCRYPT_KDF: overrides kdf
//   - ENOMCRYPT_ITERATIONS: overrides iterations
//   - ENOMCRYPT_VERBOSE: overrides verbose
//   - ENOMCRYPT_MANIFEST: overrides manifest.path
//   - ENOMCRYPT_LOG_LEVEL: overrides log.level
//
// Values that do not parse are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ENOMCRYPT_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Threads = n
		}
	}
	if v := os.Getenv("ENOMCRYPT_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("ENOMCRYPT_KDF"); v != "" {
		c.KDF = v
	}
	if v := os.Getenv("ENOMCRYPT_ITERATIONS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.Iterations = uint32(n)
		}
	}
	if v := os.Getenv("ENOMCRYPT_VERBOSE"); v != "" {
		c.Verbose = v == "1" || strings.ToLower(v) == "true"
	}
	if v := os.Getenv("ENOMCRYPT_MANIFEST"); v != "" {
		c.Manifest.Path = v
	}
	if v := os.Getenv("ENOMCRYPT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Threads < 1 || c.Threads > 1024 {
		errs = append(errs, ValidationError{
			Field:   "threads",
			Message: fmt.Sprintf("must be between 1 and 1024, got %d", c.Threads),
		})
	}
	if _, err := model.ParseMode(c.Mode); err != nil {
		errs = append(errs, ValidationError{Field: "mode", Message: err.Error()})
	}
	if _, err := model.ParseKDF(c.KDF); err != nil {
		errs = append(errs, ValidationError{Field: "kdf", Message: err.Error()})
	}
	if c.Shred.RandomIterations < 0 {
		errs = append(errs, ValidationError{Field: "shred.random_iterations", Message: "cannot be negative"})
	}
	if c.Shred.RenameTimes < 0 {
		errs = append(errs, ValidationError{Field: "shred.rename_times", Message: "cannot be negative"})
	}
	if c.Shred.Enabled && c.Shred.RandomIterations == 0 && c.Shred.RenameTimes == 0 {
		errs = append(errs, ValidationError{
			Field:   "shred",
			Message: "enabled but random_iterations and rename_times are both 0",
		})
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: text, json", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// TYPED ACCESSORS
// =============================================================================

// ModeValue returns the parsed cipher mode. Call after Validate.
func (c *Config) ModeValue() model.Mode {
	m, _ := model.ParseMode(c.Mode)
	return m
}

// KDFValue returns the parsed key derivation function. Call after Validate.
func (c *Config) KDFValue() model.KDF {
	k, _ := model.ParseKDF(c.KDF)
	return k
}

// EffectiveIterations resolves an Iterations of 0 to the KDF's default.
func (c *Config) EffectiveIterations() uint32 {
	if c.Iterations == 0 {
		return c.KDFValue().DefaultIterations()
	}
	return c.Iterations
}
