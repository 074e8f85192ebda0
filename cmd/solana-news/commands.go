package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/solana-news/internal/news"
	"github.com/RobinCoderZhao/solana-news/internal/refresher"
)

func refreshCmd(cfgPath *string) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and exit",
		Long:  "Fetches through the configured provider chain once and replaces the cache file on success. Suitable for cron.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			a, err := newApp(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.refresher.Refresh(ctx)
			printOutcome(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall deadline for the refresh")
	return cmd
}

func printOutcome(w io.Writer, out refresher.Outcome) {
	fmt.Fprintf(w, "status:   %s\n", out.Status)
	if out.Provider != "" {
		fmt.Fprintf(w, "provider: %s\n", out.Provider)
	}
	fmt.Fprintf(w, "records:  %d\n", out.Records)
	if out.Status == refresher.StatusUpdated {
		fmt.Fprintf(w, "changes:  %s\n", out.Diff.Summary())
	}
	fmt.Fprintf(w, "took:     %s\n", out.Duration.Round(time.Millisecond))
}

func showCmd(cfgPath *string) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the cached records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			cfg.History.Enabled = false

			a, err := newApp(context.Background(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			snap := a.store.Read()
			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap.Records)
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print the records as JSON")
	return cmd
}

func printSnapshot(w io.Writer, snap news.Snapshot) {
	if snap.Empty() {
		fmt.Fprintln(w, "Cache is empty. Run `solana-news refresh` first.")
		return
	}
	fmt.Fprintf(w, "%d records from %s, updated %s\n\n", len(snap.Records), snap.Provider, snap.Timestamp.Format(time.RFC3339))
	for i, rec := range snap.Records {
		fmt.Fprintf(w, "%d. %s", i+1, rec.Title)
		if rec.TokenSymbol != "" {
			fmt.Fprintf(w, " (%s)", rec.TokenSymbol)
		}
		fmt.Fprintf(w, "  [%s]\n", rec.EventDate)
		if rec.Content != "" {
			fmt.Fprintf(w, "   %s\n", rec.Content)
		}
		if rec.SourceURL != "" {
			fmt.Fprintf(w, "   %s\n", rec.SourceURL)
		}
	}
}

func historyCmd(cfgPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled; set HISTORY_ENABLED=true")
			}
			ctx := context.Background()

			a, err := newApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.history.List(ctx, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTIME\tDATE\tPROVIDER\tRECORDS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", e.ID, e.Timestamp.Format(time.RFC3339), e.Date, e.Provider, e.Count)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of snapshots to list")
	return cmd
}
