// Package sound plays a short tone whenever agents convert.
package sound

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/vl4deee11/rpsarena/pump"
)

const (
	sampleRate = beep.SampleRate(44100)
	toneHz     = 880
	toneLength = 50 * time.Millisecond

	// MinGap is the shortest time between two blips.
	MinGap = 100 * time.Millisecond
)

var initOnce struct {
	sync.Once
	err error
}

// Blipper renders conversions as sound.
type Blipper struct {
	play func()
	now  func() time.Time
	last time.Time
	tick int
}

// New initialises the speaker. A failure is not fatal to a match; callers
// log it and run without sound.
func New() (*Blipper, error) {
	initOnce.Do(func() {
		initOnce.err = speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	})
	if initOnce.err != nil {
		return nil, fmt.Errorf("initializing speaker: %w", initOnce.err)
	}
	return newBlipper(playTone, time.Now), nil
}

func newBlipper(play func(), now func() time.Time) *Blipper {
	return &Blipper{play: play, now: now}
}

func playTone() {
	sine, err := generators.SineTone(sampleRate, toneHz)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(toneLength), sine))
}

func (b *Blipper) Render(_ context.Context, f pump.Frame) error {
	// A frozen match repeats its final snapshot; only new ticks count.
	if f.Paused || f.Conversions == 0 || f.Tick == b.tick {
		return nil
	}
	b.tick = f.Tick
	now := b.now()
	if !b.last.IsZero() && now.Sub(b.last) < MinGap {
		return nil
	}
	b.last = now
	b.play()
	return nil
}

// Close releases the audio device.
func (b *Blipper) Close() {
	speaker.Close()
}
