package main

import (
	"fmt"
	"os"

	"github.com/benvon/trip-planner/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "trip-planner-configure",
		Short: "Configuration tool for the trip planner API",
		Long:  "CLI tool for inspecting and updating runtime configuration and learning state",
	}

	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewWeightsCmd())
	rootCmd.AddCommand(commands.NewTrainingCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
