package term

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/vl4deee11/rpsarena/pump"
	"github.com/vl4deee11/rpsarena/sim"
)

type fakeCtrl struct {
	paused   bool
	resized  [][2]float64
	replaced []*sim.Clock
}

func (f *fakeCtrl) RequestResize(w, h float64) { f.resized = append(f.resized, [2]float64{w, h}) }
func (f *fakeCtrl) SetPaused(p bool) { f.paused = p }
func (f *fakeCtrl) Paused() bool { return f.paused }
func (f *fakeCtrl) Replace(c *sim.Clock) { f.replaced = append(f.replaced, c) }

func newTestTerm(t *testing.T) (*Term, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)
	return New(screen, 10, 50, nil), screen
}

func rowText(s tcell.Screen, y int) string {
	cols, _ := s.Size()
	var b strings.Builder
	for x := 0; x < cols; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func frame(agents []sim.Agent, m sim.Match) pump.Frame {
	return pump.Frame{
		Snapshot: sim.Snapshot{
			Tick:   1,
			Agents: agents,
			Counts: sim.Tally(agents),
			Match:  m,
		},
		Elapsed: 2 * time.Second,
	}
}

func TestArenaFor(t *testing.T) {
	w, h := ArenaFor(80, 24, 10)
	if w != 400 || h != float64(24-PanelRows)*10 {
		t.Fatalf("ArenaFor(80,24,10) = %v,%v", w, h)
	}
	if _, h := ArenaFor(10, 2, 10); h != 10 {
		t.Fatalf("tiny terminal height = %v, want one row", h)
	}
}

func TestRenderDrawsAgentsAndPanel(t *testing.T) {
	term, screen := newTestTerm(t)
	agents := []sim.Agent{
		{X: 20, Y: 30, Type: sim.Rock},
		{X: 100, Y: 50, Type: sim.Scissors},
	}
	if err := term.Render(context.Background(), frame(agents, sim.Match{})); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if r, _, _, _ := screen.GetContent(4, 3); r != 'R' {
		t.Errorf("cell (4,3) = %q, want R", r)
	}
	if r, _, _, _ := screen.GetContent(20, 5); r != 'S' {
		t.Errorf("cell (20,5) = %q, want S", r)
	}

	top := 24 - PanelRows
	status := rowText(screen, top+1)
	if !strings.HasPrefix(status, "Rock: 1, Paper: 0, Scissors: 1 | Sum: 2") {
		t.Errorf("status row = %q", status)
	}
	if !strings.Contains(status, "Elapsed Time: 2 seconds") {
		t.Errorf("status row lacks elapsed time: %q", status)
	}
	if row := rowText(screen, top+3); !strings.HasPrefix(row, "P ") {
		t.Errorf("paper bar row = %q", row)
	}
}

func TestRenderShowsWinner(t *testing.T) {
	term, screen := newTestTerm(t)
	agents := []sim.Agent{{X: 0, Y: 0, Type: sim.Paper}}
	m := sim.Match{Status: sim.Concluded, Winner: sim.Paper}
	if err := term.Render(context.Background(), frame(agents, m)); err != nil {
		t.Fatal(err)
	}
	top := 24 - PanelRows
	if row := rowText(screen, top/2); !strings.Contains(row, "Winner: Paper") {
		t.Errorf("banner row = %q", row)
	}
}

func TestHandleKeys(t *testing.T) {
	term, _ := newTestTerm(t)
	ctrl := &fakeCtrl{}
	var asked [2]float64
	term.ctrl = ctrl
	term.restart = func(w, h float64) (*sim.Clock, error) {
		asked = [2]float64{w, h}
		return sim.NewWithAgents(sim.Arena{Width: w, Height: h, Size: 10}, nil)
	}

	if err := term.handle(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)); err != nil {
		t.Fatal(err)
	}
	if !ctrl.paused {
		t.Error("space did not pause")
	}

	if err := term.handle(tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone)); err != nil {
		t.Fatal(err)
	}
	if len(ctrl.replaced) != 1 || ctrl.paused {
		t.Errorf("restart: replaced=%d paused=%v", len(ctrl.replaced), ctrl.paused)
	}
	if asked != [2]float64{400, 190} {
		t.Errorf("restart arena = %v", asked)
	}

	for _, ev := range []*tcell.EventKey{
		tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone),
		tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone),
		tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl),
	} {
		if err := term.handle(ev); !errors.Is(err, pump.ErrStopped) {
			t.Errorf("key %v: err = %v, want ErrStopped", ev.Name(), err)
		}
	}
}

func TestHandleResize(t *testing.T) {
	term, screen := newTestTerm(t)
	ctrl := &fakeCtrl{}
	term.ctrl = ctrl

	screen.SetSize(100, 30)
	if err := term.handle(tcell.NewEventResize(100, 30)); err != nil {
		t.Fatal(err)
	}
	if len(ctrl.resized) != 1 {
		t.Fatalf("resize requests = %d, want 1", len(ctrl.resized))
	}
	if got := ctrl.resized[0]; got != [2]float64{500, float64(30-PanelRows) * 10} {
		t.Fatalf("resize = %v", got)
	}
}
