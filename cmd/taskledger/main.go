package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskledger/core/cmd/taskledger/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskledger",
		Short: "TaskLedger versioned task tracker",
		Long:  `TaskLedger is an in-memory task tracker where every mutation appends a new immutable task version plus an audit event.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewDemoCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
