// Package commands implements the trooperd CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"

	// Global flags.
	envFiles    []string
	configFiles []string
)

var rootCmd = &cobra.Command{
	Use:   "trooperd",
	Short: "trooperd - supervised component containers",
	Long: `trooperd prepares the shapes container, serves it over HTTP and
exposes /healthz, /status and /metrics on the admin address.

Settings come from the environment (and .env files); component values come
from TROOPER_* variables and the files passed with --config.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load before reading settings (default: .env)")
	rootCmd.PersistentFlags().StringSliceVar(&configFiles, "config", nil, "component configuration files (yaml, json, toml, env, properties)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(bindingsCmd)
	rootCmd.AddCommand(versionCmd)
}
