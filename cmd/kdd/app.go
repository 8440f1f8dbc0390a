package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/kddindex/commands"
	"github.com/c360studio/kddindex/config"
	"github.com/c360studio/kddindex/kdderr"
)

// newApp loads configuration and builds the command tree. The --verbose
// flag is peeked before cobra parsing so the logger exists during config
// loading.
func newApp(args []string) (*commands.App, *cobra.Command, error) {
	level := slog.LevelInfo
	for _, a := range args {
		if a == "--verbose" || a == "-v" {
			level = slog.LevelDebug
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load("")
	if err != nil {
		return nil, nil, err
	}

	app := commands.NewApp(cfg, logger)
	root := commands.NewRoot(app, Version)
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	return app, root, nil
}

// exitCodeFor maps engine error codes onto process exit codes.
func exitCodeFor(err error) int {
	switch kdderr.CodeOf(err) {
	case kdderr.InvalidParams, kdderr.EmptyHints, kdderr.QueryTooShort,
		kdderr.InvalidDepth, kdderr.UnknownEdgeType, kdderr.NodeNotFound,
		kdderr.DocumentNotFound, kdderr.UnknownKind:
		return exitUser
	case kdderr.PartialFailure, kdderr.TokenLimitExceeded:
		return exitPartial
	default:
		return exitFatal
	}
}
