package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ggitteam/salesops/internal/config"
	"github.com/ggitteam/salesops/internal/genealogy"
)

func newUplineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upline [username]",
		Short: "Print the user upline tree, optionally filtered by username",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			client := genealogy.NewClient(cfg.GenealogyBaseURL, cfg.GenealogyUser, cfg.GenealogyTimeout)

			username := ""
			if len(args) == 1 {
				username = args[0]
			}
			nodes, err := client.Upline(cmd.Context(), username)
			if err != nil {
				return fmt.Errorf("load upline data: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LEVEL\tID NO\tUSER NAME\tUSER\tPLACEMENT")
			for _, node := range nodes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", node.Level, node.IDNo, node.UserName, node.User, node.Placement)
			}
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "\nTotal nodes: %d\n", len(nodes))
			return nil
		},
	}
}

func newDownlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "downline [username]",
		Short: "Print the sponsored downline, optionally for a specific sponsor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			client := genealogy.NewClient(cfg.GenealogyBaseURL, cfg.GenealogyUser, cfg.GenealogyTimeout)

			username := ""
			if len(args) == 1 {
				username = args[0]
			}
			nodes, err := client.Downline(cmd.Context(), username)
			if err != nil {
				return fmt.Errorf("load downline data: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID NO\tREGISTERED\tUSER NAME\tUSER\tACCOUNT TYPE\tPAYMENT")
			for _, node := range nodes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", node.IDNo, node.Registered, node.UserName, node.User, node.AccountType, node.Payment)
			}
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "\nTotal nodes: %d\n", len(nodes))
			return nil
		},
	}
}
