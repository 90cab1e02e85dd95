package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vl4deee11/rpsarena/logging"
	"github.com/vl4deee11/rpsarena/pump"
	"github.com/vl4deee11/rpsarena/render/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream a match to browsers",
		Long: `Serve the arena viewer over HTTP and stream every tick over a websocket.
The first free port from --port upwards is used. Browsers report their
viewport and the arena follows the most recent one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Server.Port, _ = flags.GetInt("port")
			}
			if flags.Changed("addr") {
				cfg.Server.Addr, _ = flags.GetString("addr")
			}
			rematch, _ := flags.GetDuration("rematch")

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

			clock, err := newClock(cfg, cfg.Sim.Width, cfg.Sim.Height, cfg.Sim.Seed)
			if err != nil {
				return err
			}

			hub := web.NewHub(clock.Arena(), nil, log)
			record := recorder(store, log)
			var p *pump.Pump
			p = pump.New(clock, log,
				pump.WithFPS(cfg.Render.FPS),
				pump.WithRenderer(hub),
				pump.OnConclude(func(res pump.Result) {
					record(res)
					if rematch <= 0 {
						return
					}
					time.AfterFunc(rematch, func() {
						next, err := newClock(cfg, res.Arena.Width, res.Arena.Height, 0)
						if err != nil {
							log.Warn("rematch failed", "error", err)
							return
						}
						p.Replace(next)
					})
				}),
			)
			hub.SetResizer(p)

			ln, err := web.Listen(cfg.Server.Addr, cfg.Server.Port, cfg.Server.PortAttempts, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watch at http://%s\n", ln.Addr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				hub.Run(ctx)
				return nil
			})
			g.Go(func() error {
				_, err := p.Run(ctx)
				return err
			})
			g.Go(func() error {
				return web.Serve(ctx, ln, hub, log)
			})
			return g.Wait()
		},
	}
	addSimFlags(cmd, true)
	cmd.Flags().Int("port", 0, "First port to try (default from config, 8080)")
	cmd.Flags().String("addr", "", "Address to bind (default all interfaces)")
	cmd.Flags().Duration("rematch", 5*time.Second, "Start a new match this long after one ends (0 = keep the final board)")
	return cmd
}
