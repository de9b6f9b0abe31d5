package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abdulachik/subposter/internal/config"
	"github.com/abdulachik/subposter/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect community posting policies",
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the seeded policies",
	RunE:  runPolicyList,
}

var policyShowCmd = &cobra.Command{
	Use:   "show <community>",
	Short: "Show the policy for a community, inferring it if unknown",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyShow,
}

var policyRefresh bool

func init() {
	policyShowCmd.Flags().BoolVar(&policyRefresh, "refresh", false, "re-infer even if the policy is known")
	policyCmd.AddCommand(policyListCmd, policyShowCmd)
	rootCmd.AddCommand(policyCmd)
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store := policy.NewStore(cfg.PolicySeeds)
	out := cmd.OutOrStdout()

	for _, community := range store.Communities() {
		p, _ := store.Lookup(community)
		fmt.Fprintf(out, "r/%s\n", community)
		if err := printPolicy(cmd, p); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	return nil
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	conn, err := a.Engine.Connection(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	var p policy.Policy
	if policyRefresh {
		p = a.Policies.Refresh(ctx, conn, args[0])
	} else {
		p = a.Policies.Get(ctx, conn, args[0])
	}

	fmt.Fprintf(cmd.OutOrStdout(), "r/%s\n", policy.Normalize(args[0]))
	return printPolicy(cmd, p)
}

func printPolicy(cmd *cobra.Command, p policy.Policy) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}
	return enc.Close()
}
