// Modelserve publishes one large model file on the LAN with HTTP range
// support, so a phone or emulator can download it in resumable chunks during
// development.
//
// Usage:
//
//	modelserve serve --file ./assets/models/gemma-3n-E4B-it-int4.task
//
// See 'modelserve --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plantmeet/modelserve/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "modelserve",
	Short: "Serve a model file over HTTP with range support",
	Long: `A development file server for multi-gigabyte model artifacts.

modelserve publishes exactly one file. Clients may request byte ranges to
pause, resume or split the download, and a client dropping the connection
never takes the server down.

Settings are read from the config file (see 'modelserve config init') and
can be overridden with flags.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/modelserve/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("modelserve %s\n", version.Full())
		fmt.Printf("built with %s\n", version.Platform())
	},
}
