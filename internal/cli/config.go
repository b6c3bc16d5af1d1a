// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for enomcrypt.
//
// Command: config [subcommand]
// Short:   View and create the configuration file
//
// Subcommands:
//   show (default)      Display the effective configuration
//   path                Show configuration file path
//   init [--force]      Write a configuration file with the defaults
//
// Examples:
//   enomcrypt config                      Show current config (default)
//   enomcrypt config show --json          Config in JSON format
//   enomcrypt config path                 Show config file location
//   enomcrypt config init                 Create ~/.enomcrypt/config.toml

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/enomcrypt/internal/config"
)

// ErrConfigExists is returned by config init when the file is present and
// --force was not given.
var ErrConfigExists = errors.New("config file already exists")

func (a *App) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and create the configuration file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.showConfig()
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.showConfig()
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.showConfigPath()
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Args:  usageArgs(cobra.NoArgs),
		// A broken file must not stop init --force from replacing it.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(force)
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(show, path, initCmd)
	return cmd
}

// configFilePath is the --config path or the default location.
func (a *App) configFilePath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPathTOML()
}

func (a *App) showConfig() error {
	path, err := a.configFilePath()
	if err != nil {
		return err
	}

	if a.jsonOut {
		return NewJSONResponse("config show", map[string]interface{}{
			"path":   path,
			"config": a.cfg,
		}).Print(a.Stdout)
	}

	fmt.Fprintln(a.Stdout, TitleStyle.Render("enomcrypt configuration"))
	fmt.Fprintln(a.Stdout, RenderSeparator(41))
	if err := toml.NewEncoder(a.Stdout).Encode(a.cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Fprintln(a.Stdout, RenderSeparator(41))
	fmt.Fprintf(a.Stdout, "Config file: %s\n", DimStyle.Render(path))
	return nil
}

func (a *App) showConfigPath() error {
	path, err := a.configFilePath()
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if a.jsonOut {
		return NewJSONResponse("config path", map[string]interface{}{
			"path":   path,
			"exists": exists,
		}).Print(a.Stdout)
	}
	fmt.Fprintln(a.Stdout, path)
	return nil
}

func (a *App) initConfig(force bool) error {
	path, err := a.configFilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return &ConfigError{Path: path, Err: ErrConfigExists}
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}

	if a.jsonOut {
		return NewJSONResponse("config init", map[string]interface{}{"path": path}).Print(a.Stdout)
	}
	fmt.Fprintf(a.Stdout, "%s %s\n", SuccessStyle.Render("Wrote"), path)
	return nil
}
