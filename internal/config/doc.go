// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for enomcrypt.
//
// # Key Types
//
//   - Config: thread count, cipher mode, KDF and its cost, verbosity
//   - ShredConfig: secure disposal passes and rename count
//   - ManifestConfig: where anonymized names are recorded
//   - LogConfig: diagnostic log level and format
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the CLI, not this package)
//   - Environment variables (ENOMCRYPT_*)
//   - ~/.enomcrypt/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mode := cfg.ModeValue()
//	iterations := cfg.EffectiveIterations()
package config
