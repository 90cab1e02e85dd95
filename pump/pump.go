// Package pump drives a sim.Clock at a fixed frame rate and hands every
// snapshot to the attached renderers.
package pump

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vl4deee11/rpsarena/logging"
	"github.com/vl4deee11/rpsarena/sim"
)

// Frame is what a renderer receives each tick.
type Frame struct {
	sim.Snapshot

	// Elapsed is wall time since the match started. It keeps growing after
	// the match concludes.
	Elapsed time.Duration

	Paused bool
}

// Renderer consumes frames. Render must not retain Frame.Agents beyond the
// call unless it copies it; the slice is shared between renderers.
type Renderer interface {
	Render(ctx context.Context, f Frame) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, f Frame) error

func (fn RendererFunc) Render(ctx context.Context, f Frame) error { return fn(ctx, f) }

// ErrStopped is returned by a renderer to end Run cleanly, e.g. when the
// user quits.
var ErrStopped = errors.New("stopped")

// Result summarises a match once Run returns.
type Result struct {
	StartedAt        time.Time
	Elapsed          time.Duration
	Ticks            int
	Initial          sim.Counts
	Final            sim.Counts
	Match            sim.Match
	TotalConversions int
	Arena            sim.Arena

	// TimedOut is set when the tick cap ended the match first.
	TimedOut bool
}

type size struct{ w, h float64 }

// Pump owns the clock. Only the goroutine running Run or Step touches it;
// other goroutines talk to it through RequestResize, SetPaused and Replace.
type Pump struct {
	clock     *sim.Clock
	log       *slog.Logger
	renderers []Renderer
	fps       int
	maxTicks  int
	stopOnEnd bool
	unpaced   bool
	onEnd     func(Result)

	resize  chan size
	replace chan *sim.Clock
	paused  atomic.Bool

	mu        sync.Mutex
	startedAt time.Time
	initial   sim.Counts
	last      sim.Snapshot
	reported  bool
	endedAt   time.Time
}

type Option func(*Pump)

// WithFPS sets the tick rate. Defaults to 60.
func WithFPS(fps int) Option {
	return func(p *Pump) {
		if fps > 0 {
			p.fps = fps
		}
	}
}

func WithRenderer(r Renderer) Option {
	return func(p *Pump) {
		if r != nil {
			p.renderers = append(p.renderers, r)
		}
	}
}

// WithMaxTicks ends Run after n simulation ticks even without a winner.
func WithMaxTicks(n int) Option {
	return func(p *Pump) { p.maxTicks = n }
}

// WithStopOnConclude makes Run return as soon as the match concludes
// instead of presenting the final state until cancelled.
func WithStopOnConclude() Option {
	return func(p *Pump) { p.stopOnEnd = true }
}

// WithoutPacing makes Run step as fast as possible. Headless batches use it.
func WithoutPacing() Option {
	return func(p *Pump) { p.unpaced = true }
}

// OnConclude is called once per match from the pump goroutine when it
// concludes or hits the tick cap.
func OnConclude(fn func(Result)) Option {
	return func(p *Pump) { p.onEnd = fn }
}

func New(clock *sim.Clock, logger *slog.Logger, opts ...Option) *Pump {
	p := &Pump{
		clock:   clock,
		log:     logging.OrDiscard(logger),
		fps:     60,
		resize:  make(chan size, 1),
		replace: make(chan *sim.Clock, 1),
	}
	for _, o := range opts {
		o(p)
	}
	p.reset(clock)
	return p
}

func (p *Pump) reset(clock *sim.Clock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = clock
	p.startedAt = time.Now()
	p.last = clock.Snapshot()
	p.initial = p.last.Counts
	p.reported = false
}

// RequestResize asks for new arena bounds before the next tick. Only the
// latest request is kept.
func (p *Pump) RequestResize(width, height float64) {
	s := size{width, height}
	for {
		select {
		case p.resize <- s:
			return
		default:
		}
		select {
		case <-p.resize:
		default:
		}
	}
}

// Replace swaps in a new match before the next tick.
func (p *Pump) Replace(clock *sim.Clock) {
	for {
		select {
		case p.replace <- clock:
			return
		default:
		}
		select {
		case <-p.replace:
		default:
		}
	}
}

// SetPaused freezes the simulation. Frames keep being rendered.
func (p *Pump) SetPaused(paused bool) { p.paused.Store(paused) }

func (p *Pump) Paused() bool { return p.paused.Load() }

// Last returns the most recent snapshot.
func (p *Pump) Last() sim.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Run ticks at the configured rate until ctx is done, a renderer returns
// ErrStopped, the tick cap is hit or, with WithStopOnConclude, the match
// concludes.
func (p *Pump) Run(ctx context.Context) (Result, error) {
	var tick <-chan time.Time
	if !p.unpaced {
		ticker := time.NewTicker(time.Second / time.Duration(p.fps))
		defer ticker.Stop()
		tick = ticker.C
	}

	p.log.Info("pump started", "fps", p.fps, "unpaced", p.unpaced, "population", p.clock.Population())
	for {
		if p.unpaced {
			if ctx.Err() != nil {
				return p.result(), nil
			}
		} else {
			select {
			case <-ctx.Done():
				return p.result(), nil
			case <-tick:
			}
		}

		done, err := p.Step(ctx)
		if errors.Is(err, ErrStopped) {
			return p.result(), nil
		}
		if err != nil {
			return p.result(), err
		}
		if done {
			return p.result(), nil
		}
	}
}

// Step runs one frame: pending control requests, one tick, renderers. It
// reports whether Run should stop.
func (p *Pump) Step(ctx context.Context) (bool, error) {
	p.applyRequests()

	var snap sim.Snapshot
	if p.paused.Load() {
		snap = p.clock.Snapshot()
	} else {
		snap = p.clock.Tick()
	}

	p.mu.Lock()
	p.last = snap
	frame := Frame{Snapshot: snap, Elapsed: time.Since(p.startedAt), Paused: p.paused.Load()}
	p.mu.Unlock()

	for _, r := range p.renderers {
		if err := r.Render(ctx, frame); err != nil {
			return true, fmt.Errorf("render: %w", err)
		}
	}

	capped := p.maxTicks > 0 && snap.Tick >= p.maxTicks
	if snap.Match.Concluded() || capped {
		p.conclude()
		return p.stopOnEnd || capped, nil
	}
	return false, nil
}

func (p *Pump) applyRequests() {
	select {
	case c := <-p.replace:
		p.reset(c)
		p.log.Info("new match", "population", c.Population())
	default:
	}

	select {
	case s := <-p.resize:
		if err := p.clock.Resize(s.w, s.h); err != nil {
			p.log.Warn("resize rejected", "width", s.w, "height", s.h, "error", err)
			return
		}
		p.log.Debug("arena resized", "width", s.w, "height", s.h)
	default:
	}
}

func (p *Pump) conclude() {
	p.mu.Lock()
	if p.reported {
		p.mu.Unlock()
		return
	}
	p.reported = true
	p.endedAt = time.Now()
	p.mu.Unlock()

	res := p.result()
	if res.TimedOut {
		p.log.Info("match capped", "ticks", res.Ticks, "counts", res.Final.String())
	} else {
		p.log.Info("match concluded", "winner", res.Match.Winner.String(), "ticks", res.Ticks,
			"elapsed", res.Elapsed.Round(time.Millisecond), "conversions", res.TotalConversions)
	}
	if p.onEnd != nil {
		p.onEnd(res)
	}
}

func (p *Pump) result() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	end := time.Now()
	if p.reported {
		end = p.endedAt
	}
	return Result{
		StartedAt:        p.startedAt,
		Elapsed:          end.Sub(p.startedAt),
		Ticks:            p.last.Tick,
		Initial:          p.initial,
		Final:            p.last.Counts,
		Match:            p.last.Match,
		TotalConversions: p.last.TotalConversions,
		Arena:            p.last.Arena,
		TimedOut:         p.maxTicks > 0 && p.last.Tick >= p.maxTicks && !p.last.Match.Concluded(),
	}
}
