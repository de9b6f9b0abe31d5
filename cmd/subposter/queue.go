package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abdulachik/subposter/internal/app"
	"github.com/abdulachik/subposter/internal/config"
	"github.com/abdulachik/subposter/internal/db"
	"github.com/abdulachik/subposter/internal/post"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the queue the scheduler publishes from",
}

var queueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a post to the queue",
	RunE:  runQueueAdd,
}

var queueImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Add every post listed in a YAML file",
	Long: `Add every post listed in a YAML file. The file is a list of posts:

  - community: startups
    title: Hello
    body: First post
  - community: test
    kind: poll
    title: Pick one
    poll_options: [a, b]`,
	Args: cobra.ExactArgs(1),
	RunE: runQueueImport,
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued posts in publishing order",
	RunE:  runQueueList,
}

var queueRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a queued post",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueRemove,
}

var queueAdd struct {
	community string
	kind      string
	title     string
	body      string
	url       string
	image     string
	options   []string
	duration  int
}

func init() {
	f := queueAddCmd.Flags()
	f.StringVar(&queueAdd.community, "community", "", "target subreddit")
	f.StringVar(&queueAdd.kind, "kind", "text", "text, link, image or poll")
	f.StringVar(&queueAdd.title, "title", "", "post title")
	f.StringVar(&queueAdd.body, "body", "", "post body")
	f.StringVar(&queueAdd.url, "url", "", "link url")
	f.StringVar(&queueAdd.image, "image", "", "image file path")
	f.StringSliceVar(&queueAdd.options, "option", nil, "poll option (repeatable)")
	f.IntVar(&queueAdd.duration, "duration", 3, "poll duration in days")

	queueCmd.AddCommand(queueAddCmd, queueImportCmd, queueListCmd, queueRemoveCmd)
	rootCmd.AddCommand(queueCmd)
}

func openStore(ctx context.Context) (*config.Config, *db.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, store, nil
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kind, err := post.ParseKind(queueAdd.kind)
	if err != nil {
		return err
	}

	c := post.Candidate{
		Community: queueAdd.community,
		Kind:      kind,
		Title:     queueAdd.title,
		Body:      queueAdd.body,
		URL:       queueAdd.url,
		ImagePath: queueAdd.image,
	}
	if kind == post.KindPoll {
		c.PollOptions = queueAdd.options
		c.PollDuration = queueAdd.duration
	}

	_, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.EnqueuePost(ctx, c)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", id)
	return nil
}

func runQueueImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read queue file: %w", err)
	}

	var candidates []post.Candidate
	if err := yaml.Unmarshal(data, &candidates); err != nil {
		return fmt.Errorf("parse queue file: %w", err)
	}

	for i := range candidates {
		if candidates[i].Kind == "" {
			candidates[i].Kind = post.KindText
		}
		if err := candidates[i].Validate(); err != nil {
			return fmt.Errorf("post %d: %w", i+1, err)
		}
	}

	_, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, c := range candidates {
		if _, err := store.EnqueuePost(ctx, c); err != nil {
			return fmt.Errorf("enqueue %q: %w", c.Title, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Queued %s posts\n", humanize.Comma(int64(len(candidates))))
	return nil
}

func runQueueList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	queued, err := store.ListQueued(ctx)
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(queued) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return nil
	}

	for _, q := range queued {
		fmt.Fprintf(out, "%s  %-5s r/%-20s %s (%s)\n",
			q.ID, q.Candidate.Kind, q.Candidate.Community, q.Candidate.Title, humanize.Time(q.CreatedAt))
	}
	return nil
}

func runQueueRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RemoveQueued(ctx, args[0]); err != nil {
		return fmt.Errorf("remove %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}
