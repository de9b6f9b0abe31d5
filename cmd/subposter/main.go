package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/abdulachik/subposter/internal/logtrail"
)

var rootCmd = &cobra.Command{
	Use:   "subposter",
	Short: "A policy-aware publishing assistant for subreddits",
	Long: `Subposter publishes posts to subreddits through a pool of accounts,
adapting each post to the community's inferred posting policy. It can search,
reply, generate drafts and publish on a schedule from plain-language prompts.`,
	SilenceUsage: true,
}

// trail keeps recent log lines so prompt responses can echo them.
var trail = logtrail.New(0)

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	slog.SetDefault(slog.New(trail.Handler(newLogHandler(os.Getenv("LOG_LEVEL")))))
}

func newLogHandler(level string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	if isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.NewJSONHandler(os.Stderr, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
