package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vl4deee11/rpsarena/config"
	"github.com/vl4deee11/rpsarena/history"
	"github.com/vl4deee11/rpsarena/pump"
	"github.com/vl4deee11/rpsarena/sim"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rpsarena",
		Short: "Rock-paper-scissors arena simulation",
		Long: `rpsarena fills an arena with rock, paper and scissors agents that drift,
bounce off the walls and convert each other on contact until one type is left.

Watch a match in the terminal (run), stream it to browsers (serve) or play
batches without a display (headless).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.rpsarena/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newServeCmd(),
		newHeadlessCmd(),
		newHistoryCmd(),
	)
	return rootCmd
}

// addSimFlags registers the flags that shape a match. Arena flags are left
// out for the terminal, which sizes the arena itself.
func addSimFlags(cmd *cobra.Command, arena bool) {
	cmd.Flags().Int("per-type", 0, "Agents of each type at the start")
	cmd.Flags().Float64("size", 0, "Agent side length")
	cmd.Flags().Float64("speed", 0, "Maximum speed per axis")
	cmd.Flags().Int("fps", 0, "Ticks per second")
	cmd.Flags().Bool("sound", false, "Blip on conversions")
	cmd.Flags().Int64("seed", 0, "Random seed (0 = time based)")
	if arena {
		cmd.Flags().Float64("width", 0, "Arena width")
		cmd.Flags().Float64("height", 0, "Arena height")
	}
}

// loadConfig resolves defaults, the config file, the environment and then
// any flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("per-type") {
		cfg.Sim.PerType, _ = flags.GetInt("per-type")
	}
	if flags.Changed("size") {
		cfg.Sim.AgentSize, _ = flags.GetFloat64("size")
	}
	if flags.Changed("speed") {
		cfg.Sim.MaxSpeed, _ = flags.GetFloat64("speed")
	}
	if flags.Changed("width") {
		cfg.Sim.Width, _ = flags.GetFloat64("width")
	}
	if flags.Changed("height") {
		cfg.Sim.Height, _ = flags.GetFloat64("height")
	}
	if flags.Changed("fps") {
		cfg.Render.FPS, _ = flags.GetInt("fps")
	}
	if flags.Changed("sound") {
		cfg.Render.Sound, _ = flags.GetBool("sound")
	}
	if flags.Changed("seed") {
		cfg.Sim.Seed, _ = flags.GetInt64("seed")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newClock starts a match in a width x height arena. seed 0 is time based.
func newClock(cfg *config.Config, width, height float64, seed int64) (*sim.Clock, error) {
	sc := cfg.SimConfig()
	sc.Width = width
	sc.Height = height
	return sim.New(sc, sim.WithSeed(seed))
}

// openHistory returns nil when recording is disabled.
func openHistory(cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

// recorder saves every finished match. Failures are logged, never fatal.
func recorder(store *history.Store, log *slog.Logger) func(pump.Result) {
	return func(res pump.Result) {
		if store == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		id, err := store.Add(ctx, history.FromResult(res))
		if err != nil {
			log.Warn("failed to record match", "error", err)
			return
		}
		log.Debug("match recorded", "id", id)
	}
}
