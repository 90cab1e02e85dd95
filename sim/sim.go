package sim

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config describes a fresh match: PerType agents of each type in an arena
// of Width x Height, each agent a square of side Size, with velocity
// components drawn from [-MaxSpeed, MaxSpeed].
type Config struct {
	PerType  int
	Width    float64
	Height   float64
	Size     float64
	MaxSpeed float64
}

func (c Config) Arena() Arena {
	return Arena{Width: c.Width, Height: c.Height, Size: c.Size}
}

func (c Config) Validate() error {
	if c.PerType < 0 {
		return fmt.Errorf("%w: agents per type must not be negative, got %d", ErrInvalidConfiguration, c.PerType)
	}
	if !(c.MaxSpeed > 0) || math.IsInf(c.MaxSpeed, 0) {
		return fmt.Errorf("%w: max speed must be positive, got %v", ErrInvalidConfiguration, c.MaxSpeed)
	}
	return c.Arena().validate()
}

type Option func(*Clock)

func WithRand(r *rand.Rand) Option {
	return func(c *Clock) {
		if r != nil {
			c.rand = r
		}
	}
}

// WithSeed seeds the placement source. Zero keeps the time based default.
func WithSeed(seed int64) Option {
	return func(c *Clock) {
		if seed != 0 {
			c.rand = rand.New(rand.NewSource(seed))
		}
	}
}

// Snapshot is the state after a tick. Agents is a copy owned by the
// receiver.
type Snapshot struct {
	Tick             int     `json:"tick"`
	Arena            Arena   `json:"arena"`
	Agents           []Agent `json:"agents"`
	Counts           Counts  `json:"counts"`
	Match            Match   `json:"match"`
	Conversions      int     `json:"conversions"`
	TotalConversions int     `json:"total_conversions"`
}

// Clock owns one match and advances it a tick at a time. It is not safe for
// concurrent use; a single driver goroutine calls Tick and Resize.
type Clock struct {
	arena  Arena
	agents []Agent
	counts Counts
	match  Match
	rand   *rand.Rand

	ticks       int
	conversions int
	total       int
}

// New seeds a match with cfg.PerType agents of every type at random
// positions and velocities.
func New(cfg Config, opts ...Option) (*Clock, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Clock{
		arena: cfg.Arena(),
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(c)
	}

	c.agents = make([]Agent, 0, cfg.PerType*numTypes)
	for _, t := range Types {
		for i := 0; i < cfg.PerType; i++ {
			c.agents = append(c.agents, Agent{
				X:    c.rand.Float64() * (c.arena.Width - c.arena.Size),
				Y:    c.rand.Float64() * (c.arena.Height - c.arena.Size),
				VX:   c.randomVelocity(cfg.MaxSpeed),
				VY:   c.randomVelocity(cfg.MaxSpeed),
				Type: t,
			})
		}
	}
	c.counts = Tally(c.agents)
	return c, nil
}

// NewWithAgents starts a match from an explicit population. The slice is
// copied.
func NewWithAgents(arena Arena, agents []Agent) (*Clock, error) {
	if err := arena.validate(); err != nil {
		return nil, err
	}
	for i, a := range agents {
		if !a.Type.Valid() {
			return nil, fmt.Errorf("%w: agent %d has unknown type %d", ErrInvalidConfiguration, i, a.Type)
		}
	}

	c := &Clock{
		arena:  arena,
		agents: append([]Agent(nil), agents...),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	c.counts = Tally(c.agents)
	return c, nil
}

func (c *Clock) randomVelocity(limit float64) float64 {
	return c.rand.Float64()*limit*2 - limit
}

// Tick runs one step: move, collide, recount, check for a winner. A
// concluded match is frozen and Tick keeps returning its final snapshot.
func (c *Clock) Tick() Snapshot {
	if c.match.Concluded() {
		return c.Snapshot()
	}

	c.ticks++
	c.arena.Advance(c.agents)
	c.conversions = Resolve(c.agents, c.arena.Size)
	c.total += c.conversions
	c.counts = Tally(c.agents)
	c.match.Evaluate(c.counts)

	return c.Snapshot()
}

func (c *Clock) Snapshot() Snapshot {
	return Snapshot{
		Tick:             c.ticks,
		Arena:            c.arena,
		Agents:           append([]Agent(nil), c.agents...),
		Counts:           c.counts,
		Match:            c.match,
		Conversions:      c.conversions,
		TotalConversions: c.total,
	}
}

// Resize changes the bounds used by later boundary checks. Agents already
// outside the new bounds are not moved.
func (c *Clock) Resize(width, height float64) error {
	if !(width > 0) || !(height > 0) {
		return fmt.Errorf("%w: arena bounds must be positive, got %vx%v", ErrInvalidConfiguration, width, height)
	}
	c.arena.Width = width
	c.arena.Height = height
	return nil
}

func (c *Clock) Arena() Arena { return c.arena }

func (c *Clock) Population() int { return len(c.agents) }

func (c *Clock) Counts() Counts { return c.counts }

func (c *Clock) Match() Match { return c.match }
