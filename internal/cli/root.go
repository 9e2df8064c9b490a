// Package cli implements the uitrail command-line interface using Cobra.
// Each subcommand maps to one operator workflow (collect, tasks, status).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "uitrail",
	Short: "uitrail — Collect UI interaction trajectories at scale",
	Long: `uitrail drives a fleet of containerized desktop environments to record
UI interaction trajectories for supervised fine-tuning datasets.

Each worker binds to one remote automation endpoint, pulls tasks from a
shared queue and commits screenshot/action trajectories atomically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
