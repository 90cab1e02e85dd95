package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vl4deee11/rpsarena/pump"
	"github.com/vl4deee11/rpsarena/sim"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func winner(t sim.Type) *sim.Type { return &t }

func TestAddAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first := Record{StartedAt: started, Ticks: 900, Elapsed: 15 * time.Second, Winner: winner(sim.Rock),
		PerType: 20, Population: 60, Conversions: 140, Arena: sim.Arena{Width: 1200, Height: 800, Size: 40}}
	second := Record{StartedAt: started.Add(time.Minute), Ticks: 5000, Elapsed: 80 * time.Second,
		PerType: 20, Population: 60, Conversions: 300, Arena: sim.Arena{Width: 1200, Height: 800, Size: 40}}

	id1, err := s.Add(ctx, first)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	id2, err := s.Add(ctx, second)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id2 <= id1 {
		t.Fatalf("ids not increasing: %d, %d", id1, id2)
	}

	recs, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].ID != id2 || recs[0].Winner != nil {
		t.Errorf("newest record = %+v, want capped match first", recs[0])
	}
	got := recs[1]
	if got.Winner == nil || *got.Winner != sim.Rock {
		t.Errorf("winner = %v, want Rock", got.Winner)
	}
	if !got.StartedAt.Equal(started) || got.Elapsed != 15*time.Second || got.Ticks != 900 {
		t.Errorf("round trip lost data: %+v", got)
	}
	if got.Arena != first.Arena || got.Conversions != 140 {
		t.Errorf("arena/conversions = %+v/%d", got.Arena, got.Conversions)
	}

	limited, err := s.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != id2 {
		t.Fatalf("List(1) = %+v", limited)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, rec := range []Record{
		{Ticks: 100, Winner: winner(sim.Paper)},
		{Ticks: 300, Winner: winner(sim.Paper)},
		{Ticks: 50, Winner: winner(sim.Scissors)},
		{Ticks: 1000},
	} {
		rec.StartedAt = time.Now()
		if _, err := s.Add(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("got %d groups, want 3: %+v", len(stats), stats)
	}
	if stats[0].Winner != "Paper" || stats[0].Matches != 2 || stats[0].AvgTicks != 200 {
		t.Errorf("top group = %+v", stats[0])
	}
	seen := map[string]bool{}
	for _, st := range stats {
		seen[st.Winner] = true
	}
	if !seen["none"] || !seen["Scissors"] {
		t.Errorf("missing groups: %+v", stats)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Add(context.Background(), Record{StartedAt: time.Now(), Winner: winner(sim.Rock)}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	recs, err := reopened.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records after reopen, want 1", len(recs))
	}
}

func TestFromResult(t *testing.T) {
	r := pump.Result{
		StartedAt:        time.Now(),
		Elapsed:          time.Second,
		Ticks:            42,
		Initial:          sim.Counts{5, 5, 5},
		Final:            sim.Counts{0, 15, 0},
		Match:            sim.Match{Status: sim.Concluded, Winner: sim.Paper},
		TotalConversions: 30,
		Arena:            sim.Arena{Width: 10, Height: 10, Size: 1},
	}
	rec := FromResult(r)
	if rec.PerType != 5 || rec.Population != 15 || rec.Ticks != 42 || rec.Conversions != 30 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Winner == nil || *rec.Winner != sim.Paper {
		t.Fatalf("winner = %v", rec.Winner)
	}

	r.Match = sim.Match{}
	if FromResult(r).Winner != nil {
		t.Fatal("unfinished match should have no winner")
	}
}
