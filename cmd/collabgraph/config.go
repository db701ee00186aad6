package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/perrrseus/OpenSaga/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage collabgraph configuration",
	Long:  `View, validate and initialize collabgraph configuration.`,
	// Skips validation and telemetry so a broken config can still be inspected
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	RunE:  runConfigValidate,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	RunE:  runConfigInit,
}

var forceInit bool

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing config file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	if shown.Storage.PostgresDSN != "" {
		shown.Storage.PostgresDSN = "********"
	}
	if shown.Cache.RedisPassword != "" {
		shown.Cache.RedisPassword = "********"
	}

	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)
	if err := encoder.Encode(&shown); err != nil {
		return err
	}
	return encoder.Close()
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	result := cfg.Validate()
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  %s\n", w)
	}
	if result.HasErrors() {
		return result.Err()
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuration is valid")
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = filepath.Join(".collabgraph", "config.yaml")
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote default configuration to %s\n", path)
	return nil
}
