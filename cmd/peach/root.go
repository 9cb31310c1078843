package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/peachbot/peachbot/internal/config"
	"github.com/peachbot/peachbot/pkg/log"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "peach",
	Short: "PeachBot — a companion chatbot with long-term memory",
	Long:  `PeachBot turns conversations into scored memory fragments and injects the relevant ones back into future replies.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}
