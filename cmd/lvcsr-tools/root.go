package main

import (
	"log/slog"
	"os"

	"github.com/example/lvcsr-decode/internal/server"
	"github.com/spf13/cobra"
)

var logLevel string

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lvcsr-tools",
		Short: "Build and inspect LVCSR language model and grammar files",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			setupLogger(logLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")

	cmd.AddCommand(newNgramCmd())
	cmd.AddCommand(newDFACmd())

	return cmd
}

func setupLogger(levelStr string) {
	lvl, err := server.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}
