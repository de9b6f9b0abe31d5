package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdulachik/subposter/internal/agent"
	"github.com/abdulachik/subposter/internal/app"
	"github.com/abdulachik/subposter/internal/config"
)

var promptCmd = &cobra.Command{
	Use:   "prompt <text>",
	Short: "Handle a single prompt",
	Long: `Handle one prompt and print the response. Examples:

  subposter prompt "search ai agents in r/startups"
  subposter prompt "post to r/test: Hello | first post body"
  subposter prompt --url https://example.com "post to r/test: Launch | see link"
  subposter prompt "schedule post every 30 minutes in r/startups about ai"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrompt,
}

var (
	promptURL   string
	promptImage string
	promptJSON  bool
)

func init() {
	promptCmd.Flags().StringVar(&promptURL, "url", "", "turn a text post into a link post")
	promptCmd.Flags().StringVar(&promptImage, "image", "", "turn a text post into an image post")
	promptCmd.Flags().BoolVar(&promptJSON, "json", false, "print the full response as JSON")
	rootCmd.AddCommand(promptCmd)
}

// openApp loads and validates configuration and wires the application.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForServe(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	a, err := app.New(ctx, cfg, trail)
	if err != nil {
		return nil, fmt.Errorf("create app: %w", err)
	}
	return a, nil
}

func runPrompt(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Agent.HandlePrompt(ctx, agent.Request{
		Prompt:    strings.Join(args, " "),
		URL:       promptURL,
		ImagePath: promptImage,
	})
	if err != nil {
		return fmt.Errorf("handle prompt: %w", err)
	}

	if promptJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResponse(cmd.OutOrStdout(), resp)
	return nil
}

// printResponse renders a response for a terminal.
func printResponse(w io.Writer, resp *agent.Response) {
	fmt.Fprintln(w, resp.Message)

	for i, r := range resp.Results {
		fmt.Fprintf(w, "\n%d. %s (r/%s)\n", i+1, r.Title, r.Community)
		fmt.Fprintf(w, "   %s\n", r.URL)
		if r.Summary != "" {
			fmt.Fprintf(w, "   %s\n", r.Summary)
		}
	}

	if resp.Draft != nil {
		fmt.Fprintf(w, "\nr/%s\n%s\n\n%s\n", resp.Draft.Community, resp.Draft.Title, resp.Draft.Text)
	}

	if len(resp.PostIDs) > 0 {
		fmt.Fprintf(w, "\nPost IDs: %s\n", strings.Join(resp.PostIDs, ", "))
	}

	if resp.DownloadFile != "" {
		fmt.Fprintf(w, "\nSaved: %s\n", resp.DownloadFile)
	}

	if resp.Instructions != "" {
		fmt.Fprintf(w, "\n%s\n", resp.Instructions)
	}
}
