// Package render holds presentation helpers shared by the renderers.
package render

import (
	"fmt"
	"time"

	"github.com/vl4deee11/rpsarena/sim"
)

// Series keeps the last N counts of every type for the population graph.
type Series struct {
	points []sim.Counts
	limit  int
}

func NewSeries(n int) *Series {
	if n < 1 {
		n = 1
	}
	return &Series{points: make([]sim.Counts, 0, n), limit: n}
}

// Push appends c, dropping the oldest point when full.
func (s *Series) Push(c sim.Counts) {
	if len(s.points) == s.limit {
		copy(s.points, s.points[1:])
		s.points = s.points[:s.limit-1]
	}
	s.points = append(s.points, c)
}

func (s *Series) Len() int { return len(s.points) }

func (s *Series) Cap() int { return s.limit }

// Values returns the history of t, oldest first.
func (s *Series) Values(t sim.Type) []int {
	out := make([]int, len(s.points))
	for i, p := range s.points {
		out[i] = p.Get(t)
	}
	return out
}

func (s *Series) Reset() { s.points = s.points[:0] }

// ScoreLine is the one-line population summary.
func ScoreLine(c sim.Counts) string {
	return c.String()
}

// ElapsedLine formats whole elapsed seconds.
func ElapsedLine(d time.Duration) string {
	return fmt.Sprintf("Elapsed Time: %d seconds", int(d/time.Second))
}

// WinnerLine is empty while the match runs.
func WinnerLine(m sim.Match) string {
	if !m.Concluded() {
		return ""
	}
	return "Winner: " + m.Winner.String()
}

// BarHeights scales counts against the largest one so the tallest bar is
// height. All zero counts give all zero bars.
func BarHeights(c sim.Counts, height int) [3]int {
	var out [3]int
	top := 0
	for _, v := range c {
		if v > top {
			top = v
		}
	}
	if top == 0 {
		return out
	}
	for i, v := range c {
		out[i] = v * height / top
	}
	return out
}
