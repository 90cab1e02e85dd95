package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vl4deee11/rpsarena/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer store.Close()

			recs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if recs == nil {
					recs = []history.Record{}
				}
				return json.NewEncoder(out).Encode(recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(out, "No matches recorded.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tWINNER\tTICKS\tELAPSED\tAGENTS\tCONVERSIONS")
			for _, r := range recs {
				winner := "-"
				if r.Winner != nil {
					winner = r.Winner.String()
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%d\t%d\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), winner, r.Ticks,
					r.Elapsed.Round(time.Millisecond), r.Population, r.Conversions)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Number of matches to show (0 = all)")
	cmd.AddCommand(newHistoryStatsCmd())
	return cmd
}

func newHistoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show wins per type",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if stats == nil {
					stats = []history.WinnerStat{}
				}
				return json.NewEncoder(out).Encode(stats)
			}
			total := 0
			for _, s := range stats {
				total += s.Matches
			}
			if total == 0 {
				fmt.Fprintln(out, "No matches recorded.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WINNER\tMATCHES\tSHARE\tAVG TICKS")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.0f\n", s.Winner, s.Matches, 100*float64(s.Matches)/float64(total), s.AvgTicks)
			}
			return w.Flush()
		},
	}
}
