package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vl4deee11/rpsarena/logging"
	"github.com/vl4deee11/rpsarena/pump"
	"github.com/vl4deee11/rpsarena/render"
	"github.com/vl4deee11/rpsarena/sim"
)

// matchSummary is the JSON form of one headless match.
type matchSummary struct {
	Match       int        `json:"match"`
	Winner      string     `json:"winner,omitempty"`
	Ticks       int        `json:"ticks"`
	ElapsedMS   int64      `json:"elapsed_ms"`
	Conversions int        `json:"conversions"`
	Initial     sim.Counts `json:"initial"`
	Final       sim.Counts `json:"final"`
	Capped      bool       `json:"capped"`
}

func newSummary(n int, res pump.Result) matchSummary {
	s := matchSummary{
		Match:       n,
		Ticks:       res.Ticks,
		ElapsedMS:   res.Elapsed.Milliseconds(),
		Conversions: res.TotalConversions,
		Initial:     res.Initial,
		Final:       res.Final,
		Capped:      res.TimedOut,
	}
	if res.Match.Concluded() {
		s.Winner = res.Match.Winner.String()
	}
	return s
}

// summarize renders a result as one line. n 0 leaves out the match number.
func summarize(n int, res pump.Result) string {
	prefix := ""
	if n > 0 {
		prefix = fmt.Sprintf("match %d: ", n)
	}
	if !res.Match.Concluded() {
		return fmt.Sprintf("%sno winner after %d ticks (%s)", prefix, res.Ticks, res.Final)
	}
	return fmt.Sprintf("%s%s wins after %d ticks, %d conversions, %s",
		prefix, res.Match.Winner, res.Ticks, res.TotalConversions, res.Elapsed.Round(time.Millisecond))
}

func newHeadlessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headless",
		Short: "Play matches without a display",
		Long: `Play one or more matches as fast as possible and print how each ended.
Matches that have no winner after --max-ticks are reported as capped.
Finished matches are recorded in the history database unless it is disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			matches, _ := cmd.Flags().GetInt("matches")
			maxTicks, _ := cmd.Flags().GetInt("max-ticks")
			logEvery, _ := cmd.Flags().GetInt("log-every")
			if matches < 1 {
				return fmt.Errorf("--matches must be at least 1, got %d", matches)
			}

			log, closer, err := logging.Open(cfg.Logging.Level, cfg.Logging.File, os.Stderr)
			if err != nil {
				return err
			}
			defer closer.Close()

			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			summaries := make([]matchSummary, 0, matches)
			for i := 1; i <= matches; i++ {
				seed := cfg.Sim.Seed
				if seed != 0 {
					seed += int64(i - 1)
				}
				clock, err := newClock(cfg, cfg.Sim.Width, cfg.Sim.Height, seed)
				if err != nil {
					return err
				}
				p := pump.New(clock, log.With("match", i),
					pump.WithoutPacing(),
					pump.WithStopOnConclude(),
					pump.WithMaxTicks(maxTicks),
					pump.WithRenderer(render.NewLog(log, logEvery)),
					pump.OnConclude(recorder(store, log)),
				)
				res, err := p.Run(ctx)
				if err != nil {
					return err
				}
				if ctx.Err() != nil {
					return fmt.Errorf("interrupted during match %d", i)
				}
				summaries = append(summaries, newSummary(i, res))
				if !jsonOut {
					fmt.Fprintln(out, summarize(i, res))
				}
			}

			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}
			return nil
		},
	}
	addSimFlags(cmd, true)
	cmd.Flags().Int("matches", 1, "Number of matches to play")
	cmd.Flags().Int("max-ticks", 100000, "Give up on a match after this many ticks (0 = never)")
	cmd.Flags().Int("log-every", 1000, "Log counts every N ticks at debug level")
	return cmd
}
