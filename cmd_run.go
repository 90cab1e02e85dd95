package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/vl4deee11/rpsarena/config"
	"github.com/vl4deee11/rpsarena/logging"
	"github.com/vl4deee11/rpsarena/pump"
	"github.com/vl4deee11/rpsarena/render/sound"
	"github.com/vl4deee11/rpsarena/render/term"
	"github.com/vl4deee11/rpsarena/sim"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch a match in the terminal",
		Long: `Run a match in the terminal. The arena fills the window and follows it
when the window is resized.

Keys: space pauses, r starts a new match, q or Esc quits.
Logs are discarded unless logging.file (or RPSARENA_LOG_FILE) is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := runTerminal(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summarize(0, res))
			return nil
		},
	}
	addSimFlags(cmd, false)
	return cmd
}

// runTerminal owns the screen until the user quits; the result is printed
// only after the terminal is restored.
func runTerminal(ctx context.Context, cfg *config.Config) (pump.Result, error) {
	log, closer, err := logging.Open(cfg.Logging.Level, cfg.Logging.File, io.Discard)
	if err != nil {
		return pump.Result{}, err
	}
	defer closer.Close()

	store, err := openHistory(cfg)
	if err != nil {
		return pump.Result{}, err
	}
	if store != nil {
		defer store.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return pump.Result{}, fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return pump.Result{}, fmt.Errorf("failed to initialize screen: %w", err)
	}
	view := term.New(screen, cfg.Sim.AgentSize, cfg.Render.GraphPoints, log)
	defer view.Close()

	w, h := view.ArenaSize()
	clock, err := newClock(cfg, w, h, cfg.Sim.Seed)
	if err != nil {
		return pump.Result{}, err
	}

	opts := []pump.Option{
		pump.WithFPS(cfg.Render.FPS),
		pump.WithRenderer(view),
		pump.OnConclude(recorder(store, log)),
	}
	if cfg.Render.Sound {
		blip, err := sound.New()
		if err != nil {
			log.Warn("sound disabled", "error", err)
		} else {
			defer blip.Close()
			opts = append(opts, pump.WithRenderer(blip))
		}
	}

	p := pump.New(clock, log, opts...)
	view.Bind(p, func(width, height float64) (*sim.Clock, error) {
		return newClock(cfg, width, height, 0)
	})
	return p.Run(ctx)
}
