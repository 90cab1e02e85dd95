package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/vl4deee11/rpsarena/history"
	"github.com/vl4deee11/rpsarena/pump"
	"github.com/vl4deee11/rpsarena/sim"
)

// isolateHome points HOME and the history database at a temp directory so
// tests never read ~/.rpsarena.
func isolateHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("RPSARENA_HISTORY_PATH", filepath.Join(dir, "history.db"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"version": false, "run": false, "serve": false, "headless": false, "history": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("output %q does not mention version %q", out, version)
	}

	out, err = execute(t, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad JSON %q: %v", out, err)
	}
	if got["version"] != version {
		t.Errorf("version = %q", got["version"])
	}
}

func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("log-level", "", "")
	addSimFlags(cmd, true)
	return cmd
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	isolateHome(t)
	cmd := newFlagCmd()
	if err := cmd.ParseFlags([]string{"--per-type", "7", "--size", "12", "--speed", "2.5", "--width", "300",
		"--fps", "30", "--seed", "42", "--log-level", "debug"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Sim.PerType != 7 || cfg.Sim.AgentSize != 12 || cfg.Sim.MaxSpeed != 2.5 {
		t.Errorf("sim = %+v", cfg.Sim)
	}
	if cfg.Sim.Width != 300 || cfg.Sim.Height != 800 {
		t.Errorf("arena = %vx%v, want 300x800", cfg.Sim.Width, cfg.Sim.Height)
	}
	if cfg.Render.FPS != 30 || cfg.Sim.Seed != 42 || cfg.Logging.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigRejectsInvalidFlags(t *testing.T) {
	isolateHome(t)
	cmd := newFlagCmd()
	if err := cmd.ParseFlags([]string{"--size", "-1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(cmd); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("err = %v, want invalid configuration", err)
	}
}

func TestSummarize(t *testing.T) {
	won := pump.Result{
		Ticks:            120,
		Elapsed:          2 * time.Second,
		TotalConversions: 15,
		Final:            sim.Counts{0, 9, 0},
		Match:            sim.Match{Status: sim.Concluded, Winner: sim.Paper},
	}
	if got := summarize(3, won); got != "match 3: Paper wins after 120 ticks, 15 conversions, 2s" {
		t.Errorf("summarize(won) = %q", got)
	}

	capped := pump.Result{Ticks: 50, Final: sim.Counts{1, 2, 3}, TimedOut: true}
	if got := summarize(0, capped); got != "no winner after 50 ticks (Rock: 1, Paper: 2, Scissors: 3 | Sum: 6)" {
		t.Errorf("summarize(capped) = %q", got)
	}
}

func TestHeadlessRecordsHistory(t *testing.T) {
	isolateHome(t)

	out, err := execute(t, "headless", "--json", "--matches", "2", "--per-type", "3",
		"--width", "200", "--height", "200", "--size", "20", "--seed", "7", "--max-ticks", "3000",
		"--log-level", "error")
	if err != nil {
		t.Fatalf("headless: %v\n%s", err, out)
	}
	var summaries []matchSummary
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("bad JSON %q: %v", out, err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	for _, s := range summaries {
		if s.Final.Total() != 9 || s.Initial != (sim.Counts{3, 3, 3}) {
			t.Errorf("population not conserved: %+v", s)
		}
		if (s.Winner == "") != s.Capped {
			t.Errorf("a match either has a winner or was capped: %+v", s)
		}
		if s.Winner != "" && s.Final.Alive() != 1 {
			t.Errorf("winner with several types alive: %+v", s)
		}
	}

	out, err = execute(t, "history", "--json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var recs []history.Record
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("bad JSON %q: %v", out, err)
	}
	if len(recs) != 2 {
		t.Fatalf("history has %d matches, want 2", len(recs))
	}
	if recs[0].Population != 9 || recs[0].PerType != 3 {
		t.Errorf("record = %+v", recs[0])
	}

	out, err = execute(t, "history", "stats")
	if err != nil {
		t.Fatalf("history stats: %v", err)
	}
	if !strings.Contains(out, "WINNER") {
		t.Errorf("stats output = %q", out)
	}
}

func TestHistoryEmpty(t *testing.T) {
	isolateHome(t)
	out, err := execute(t, "history")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No matches recorded.") {
		t.Errorf("output = %q", out)
	}
}

func TestHeadlessRejectsZeroMatches(t *testing.T) {
	isolateHome(t)
	if _, err := execute(t, "headless", "--matches", "0"); err == nil {
		t.Fatal("expected an error for --matches 0")
	}
}
