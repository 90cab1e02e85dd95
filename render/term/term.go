// Package term renders matches in the terminal with tcell.
package term

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/vl4deee11/rpsarena/logging"
	"github.com/vl4deee11/rpsarena/pump"
	"github.com/vl4deee11/rpsarena/render"
	"github.com/vl4deee11/rpsarena/sim"
)

// PanelRows is the height of the status panel under the arena.
const PanelRows = 5

var sparks = []rune("▁▂▃▄▅▆▇█")

var typeColors = map[sim.Type]tcell.Color{
	sim.Rock:     tcell.ColorRed,
	sim.Paper:    tcell.ColorBlue,
	sim.Scissors: tcell.ColorGreen,
}

// Controller is the part of the pump the terminal drives from key and
// resize events.
type Controller interface {
	RequestResize(width, height float64)
	SetPaused(paused bool)
	Paused() bool
	Replace(c *sim.Clock)
}

// Restarter builds a fresh match for an arena of the given size.
type Restarter func(width, height float64) (*sim.Clock, error)

type Term struct {
	screen   tcell.Screen
	log      *slog.Logger
	size     float64
	series   *render.Series
	events   chan tcell.Event
	ctrl     Controller
	restart  Restarter
	lastTick int
}

// New wraps an initialised screen. size is the agent side in arena units;
// one terminal cell is size/2 units wide and size units tall, so an agent
// covers two cells side by side.
func New(screen tcell.Screen, size float64, graphPoints int, logger *slog.Logger) *Term {
	t := &Term{
		screen:   screen,
		log:      logging.OrDiscard(logger),
		size:     size,
		series:   render.NewSeries(graphPoints),
		events:   make(chan tcell.Event, 100),
		lastTick: -1,
	}
	screen.HideCursor()
	return t
}

// Bind attaches the pump and the restart factory and starts reading input.
func (t *Term) Bind(ctrl Controller, restart Restarter) {
	t.ctrl = ctrl
	t.restart = restart
	go func() {
		for {
			ev := t.screen.PollEvent()
			if ev == nil {
				return
			}
			t.events <- ev
		}
	}()
}

// ArenaSize converts the current screen size to arena bounds.
func (t *Term) ArenaSize() (float64, float64) {
	cols, rows := t.screen.Size()
	return ArenaFor(cols, rows, t.size)
}

// ArenaFor is the arena that fits a cols x rows terminal above the panel.
func ArenaFor(cols, rows int, size float64) (float64, float64) {
	arenaRows := rows - PanelRows
	if arenaRows < 1 {
		arenaRows = 1
	}
	if cols < 2 {
		cols = 2
	}
	return float64(cols) * size / 2, float64(arenaRows) * size
}

func (t *Term) cellW() float64 { return t.size / 2 }

func (t *Term) cellH() float64 { return t.size }

func (t *Term) Render(_ context.Context, f pump.Frame) error {
drain:
	for {
		select {
		case ev := <-t.events:
			if err := t.handle(ev); err != nil {
				return err
			}
		default:
			break drain
		}
	}

	if f.Tick != t.lastTick {
		if f.Tick < t.lastTick {
			t.series.Reset()
		}
		t.series.Push(f.Counts)
		t.lastTick = f.Tick
	}

	t.draw(f)
	return nil
}

func (t *Term) handle(ev tcell.Event) error {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return pump.ErrStopped
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			return pump.ErrStopped
		case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
			if t.ctrl != nil {
				t.ctrl.SetPaused(!t.ctrl.Paused())
			}
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'r':
			t.newMatch()
		}
	case *tcell.EventResize:
		t.screen.Sync()
		if t.ctrl != nil {
			w, h := t.ArenaSize()
			t.ctrl.RequestResize(w, h)
		}
	}
	return nil
}

func (t *Term) newMatch() {
	if t.ctrl == nil || t.restart == nil {
		return
	}
	w, h := t.ArenaSize()
	c, err := t.restart(w, h)
	if err != nil {
		t.log.Warn("restart failed", "error", err)
		return
	}
	t.series.Reset()
	t.lastTick = -1
	t.ctrl.SetPaused(false)
	t.ctrl.Replace(c)
}

func (t *Term) draw(f pump.Frame) {
	s := t.screen
	s.Clear()
	cols, rows := s.Size()
	arenaRows := rows - PanelRows
	if arenaRows < 1 {
		arenaRows = 1
	}

	spanX := int(math.Ceil(t.size / t.cellW()))
	spanY := int(math.Ceil(t.size / t.cellH()))
	for _, a := range f.Agents {
		cx := int(math.Floor(a.X / t.cellW()))
		cy := int(math.Floor(a.Y / t.cellH()))
		style := tcell.StyleDefault.Background(typeColors[a.Type]).Foreground(tcell.ColorBlack)
		for dy := 0; dy < spanY; dy++ {
			for dx := 0; dx < spanX; dx++ {
				x, y := cx+dx, cy+dy
				if x < 0 || y < 0 || x >= cols || y >= arenaRows {
					continue
				}
				r := ' '
				if dx == 0 && dy == 0 {
					r = []rune(a.Type.Letter())[0]
				}
				s.SetContent(x, y, r, nil, style)
			}
		}
	}

	t.drawPanel(f, cols, arenaRows)
	s.Show()
}

func (t *Term) drawPanel(f pump.Frame, cols, top int) {
	plain := tcell.StyleDefault
	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)

	t.text(0, top, strings.Repeat("─", cols), dim)

	status := render.ScoreLine(f.Counts) + "  " + render.ElapsedLine(f.Elapsed)
	if f.Paused {
		status += "  [paused]"
	}
	t.text(0, top+1, status, plain)

	const barWidth = 20
	bars := render.BarHeights(f.Counts, barWidth)
	for i, typ := range sim.Types {
		row := top + 2 + i
		style := tcell.StyleDefault.Foreground(typeColors[typ])
		label := fmt.Sprintf("%s %-*s %3d ", typ.Letter(), barWidth, strings.Repeat("█", bars[i]), f.Counts.Get(typ))
		t.text(0, row, label, style)
		t.text(len([]rune(label)), row, t.sparkline(typ, f.Counts.Total()), style)
	}

	if w := render.WinnerLine(f.Match); w != "" {
		banner := " " + w + " "
		x := (cols - len(banner)) / 2
		if x < 0 {
			x = 0
		}
		t.text(x, top/2, banner, tcell.StyleDefault.Reverse(true).Bold(true))
	}
	t.text(cols-len(helpLine), top+1, helpLine, dim)
}

const helpLine = "space pause  r restart  q quit"

func (t *Term) sparkline(typ sim.Type, total int) string {
	vals := t.series.Values(typ)
	if total <= 0 {
		return ""
	}
	var b strings.Builder
	for _, v := range vals {
		i := v * (len(sparks) - 1) / total
		b.WriteRune(sparks[i])
	}
	return b.String()
}

func (t *Term) text(x, y int, s string, style tcell.Style) {
	if x < 0 {
		return
	}
	cols, rows := t.screen.Size()
	if y < 0 || y >= rows {
		return
	}
	for _, r := range s {
		if x >= cols {
			return
		}
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// Close restores the terminal.
func (t *Term) Close() {
	t.screen.Fini()
}
