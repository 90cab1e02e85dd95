package render

import (
	"context"
	"log/slog"

	"github.com/vl4deee11/rpsarena/logging"
	"github.com/vl4deee11/rpsarena/pump"
)

// Log is a headless renderer that reports counts every Every ticks at debug
// level.
type Log struct {
	log   *slog.Logger
	every int
	last  int
}

func NewLog(logger *slog.Logger, every int) *Log {
	if every < 1 {
		every = 1
	}
	return &Log{log: logging.OrDiscard(logger), every: every, last: -1}
}

func (l *Log) Render(_ context.Context, f pump.Frame) error {
	if f.Tick == l.last || f.Tick%l.every != 0 {
		return nil
	}
	l.last = f.Tick
	l.log.Debug("tick", "tick", f.Tick, "counts", ScoreLine(f.Counts), "conversions", f.Conversions)
	return nil
}
