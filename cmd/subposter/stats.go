package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abdulachik/subposter/internal/vectorstore"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show publishing statistics",
	Long:  `Display statistics about publications, the queue and the publication history.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	total, err := store.CountPublications(ctx)
	if err != nil {
		return fmt.Errorf("count publications: %w", err)
	}

	today, err := store.CountPublicationsSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("count recent publications: %w", err)
	}

	byCommunity, err := store.PublicationsByCommunity(ctx)
	if err != nil {
		return fmt.Errorf("count publications by community: %w", err)
	}

	queued, err := store.CountQueued(ctx)
	if err != nil {
		return fmt.Errorf("count queue: %w", err)
	}

	recent, err := store.RecentPublications(ctx, 5)
	if err != nil {
		return fmt.Errorf("list recent publications: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Subposter Statistics ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Database: %s\n", cfg.DatabasePath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Publications:")
	fmt.Fprintf(out, "  Total: %s\n", humanize.Comma(total))
	fmt.Fprintf(out, "  Last 24h: %s\n", humanize.Comma(today))
	fmt.Fprintln(out)

	if len(byCommunity) > 0 {
		fmt.Fprintln(out, "  By subreddit:")
		for _, row := range byCommunity {
			fmt.Fprintf(out, "    r/%s: %s\n", row.Community, humanize.Comma(row.Count))
		}
		fmt.Fprintln(out)
	}

	if len(recent) > 0 {
		fmt.Fprintln(out, "  Recent:")
		for _, p := range recent {
			fmt.Fprintf(out, "    %s  r/%s  %s (%s by u/%s)\n",
				p.PostID, p.Community, p.Title, humanize.Time(p.CreatedAt), p.Username)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Queue:")
	fmt.Fprintf(out, "  Pending: %s\n", humanize.Comma(queued))
	fmt.Fprintln(out)

	if cfg.VecLitePath != "" {
		history, err := vectorstore.New(vectorstore.Config{
			Path:       cfg.VecLitePath,
			ConfigPath: cfg.VecLiteConfigPath,
		})
		if err != nil {
			slog.Warn("failed to open publication history", "error", err)
		} else {
			defer history.Close()
			fmt.Fprintln(out, "History:")
			fmt.Fprintf(out, "  Path: %s\n", cfg.VecLitePath)
			fmt.Fprintf(out, "  Documents: %s\n", humanize.Comma(int64(history.Count())))
			fmt.Fprintln(out)
		}
	}

	return nil
}
