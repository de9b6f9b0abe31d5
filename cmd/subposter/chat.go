package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdulachik/subposter/internal/agent"
	"github.com/abdulachik/subposter/internal/search"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive prompt session",
	Long: `Read prompts from standard input until EOF or "exit". Results of the last
search are kept, so "reply to all with <text>" answers every one of them.

A running schedule keeps firing while the session is open.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	var prior []search.Result

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		resp, err := a.Agent.HandlePrompt(ctx, agent.Request{Prompt: line, PriorResults: prior})
		if err != nil {
			return fmt.Errorf("handle prompt: %w", err)
		}

		printResponse(out, resp)
		fmt.Fprintln(out)

		if len(resp.Results) > 0 {
			prior = resp.Results
		}
	}

	return scanner.Err()
}
