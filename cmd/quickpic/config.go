package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"quickpic/pkg/config"
	"quickpic/pkg/ui"
)

const defaultConfigPath = ".quickpic.yaml"

func newConfigCmd(g *globalOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage QuickPic configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (QUICKPIC_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, g)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, g)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, g)
		},
	}

	configCmd.AddCommand(initCmd, showCmd, validateCmd)
	return configCmd
}

func runConfigInit(cmd *cobra.Command, g *globalOptions) error {
	path := g.configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file %s already exists", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	ui.PrintInfo("Next", "edit it, then run 'quickpic config validate'")
	return nil
}

func runConfigShow(cmd *cobra.Command, g *globalOptions) error {
	cfg, err := config.Load(g.configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, g *globalOptions) error {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(g.configFile); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			problems := make([]string, 0, len(joined.Unwrap()))
			for _, e := range joined.Unwrap() {
				problems = append(problems, "  - "+e.Error())
			}
			return fmt.Errorf("configuration has errors:\n%s", strings.Join(problems, "\n"))
		}
		return err
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Service", cfg.Cloud.BaseURL)
	ui.PrintInfo("Output directory", cfg.Download.OutputDir)
	ui.PrintInfo("Attempts per operation", fmt.Sprint(cfg.Download.MaxAttempts))
	return nil
}
