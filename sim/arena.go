package sim

import (
	"fmt"
	"math"
)

// Arena is the rectangle agents bounce around in. Size is the side of the
// square every agent occupies.
type Arena struct {
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
	Size   float64 `json:"size"`
}

func (a Arena) validate() error {
	if !(a.Size > 0) || math.IsInf(a.Size, 0) {
		return fmt.Errorf("%w: agent size must be positive, got %v", ErrInvalidConfiguration, a.Size)
	}
	if !(a.Width >= a.Size) || !(a.Height >= a.Size) {
		return fmt.Errorf("%w: arena %vx%v cannot hold an agent of size %v",
			ErrInvalidConfiguration, a.Width, a.Height, a.Size)
	}
	return nil
}

// Advance moves every agent one tick along its velocity and flips the
// velocity component of any axis on which the agent is out of bounds.
// Positions are left where they land; an agent that crossed a wall comes
// back on the following ticks.
func (a Arena) Advance(agents []Agent) {
	for i := range agents {
		ag := &agents[i]
		ag.X += ag.VX
		ag.Y += ag.VY

		if ag.X < 0 || ag.X+a.Size > a.Width {
			ag.VX = -ag.VX
		}
		if ag.Y < 0 || ag.Y+a.Size > a.Height {
			ag.VY = -ag.VY
		}
	}
}
