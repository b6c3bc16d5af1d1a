// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command, global flags and logging setup for enomcrypt.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jeranaias/enomcrypt/internal/config"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App holds the state shared by every command of one invocation.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	cfg *config.Config
	log *logrus.Logger

	// canPrompt overrides terminal detection for the proceed prompt.
	canPrompt func(io.Reader) bool

	// Global flags
	configPath string
	verbose    bool
	jsonOut    bool
	logLevel   string
	logFormat  string
}

// NewApp creates an App bound to the process streams.
func NewApp() *App {
	return &App{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string) int {
	return NewApp().Run(args)
}

// Run parses args, executes the selected command and maps its error to an
// exit code.
func (a *App) Run(args []string) int {
	root := a.RootCommand()
	root.SetArgs(args)

	cmd, err := root.ExecuteC()
	if err == nil {
		return ExitSuccess
	}

	name := root.Name()
	if cmd != nil {
		name = cmd.Name()
	}
	var partial *PartialFailureError
	switch {
	case errors.As(err, &partial) && a.jsonOut:
		// The result document already reports the failures.
	case a.jsonOut:
		DisplayError(a.Stdout, name, err, true)
	default:
		DisplayError(a.Stderr, name, err, false)
	}
	return ExitCode(err)
}

// RootCommand builds the command tree.
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "enomcrypt",
		Short: "Bulk AES-256 encryption of directory trees",
		Long: `enomcrypt encrypts or decrypts every file under a directory with AES-256,
mirroring the directory structure at a target location.

Keys are derived from a password and salt with Argon2id (default) or
PBKDF2-HMAC-SHA256. GCM mode (default) authenticates every file; ECB mode
is kept for compatibility with older archives and detects nothing.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s, %s/%s)", Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ~/.enomcrypt/config.toml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log every directory and file action")
	pf.BoolVar(&a.jsonOut, "json", false, "print one JSON document to stdout")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format (text or json)")

	root.AddCommand(
		a.dirCommand(),
		a.fileCommand(),
		a.scanCommand(),
		a.benchCommand(),
		a.configCommand(),
	)
	return root
}

// setup loads the configuration, applies the global flags and builds the
// logger.
func (a *App) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}

	a.cfg = cfg
	a.log = newLogger(cfg.Log, a.Stderr)
	return nil
}

func (a *App) loadConfig() (*config.Config, error) {
	if a.configPath != "" {
		cfg, err := config.LoadFromPath(a.configPath)
		if err != nil {
			return nil, &ConfigError{Path: a.configPath, Err: err}
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	return cfg, nil
}

// newLogger builds the process logger. The level and format were validated
// with the configuration.
func newLogger(cfg config.LogConfig, w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: !ColorsEnabled() || !isTerminal(w),
			FullTimestamp: true,
		})
	}
	return logger
}

// usageArgs wraps a positional argument validator so its failures map to
// ExitUsageError.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}
