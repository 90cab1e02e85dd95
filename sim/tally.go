package sim

import (
	"encoding/json"
	"fmt"
)

// Counts holds the population of each type, indexed by Type.
type Counts [numTypes]int

func Tally(agents []Agent) Counts {
	var c Counts
	for i := range agents {
		c[agents[i].Type]++
	}
	return c
}

func (c Counts) Get(t Type) int { return c[t] }

func (c Counts) Total() int {
	return c[Rock] + c[Paper] + c[Scissors]
}

// Alive is the number of types with at least one agent.
func (c Counts) Alive() int {
	n := 0
	for _, v := range c {
		if v > 0 {
			n++
		}
	}
	return n
}

// Sole returns the only type still present, if exactly one is.
func (c Counts) Sole() (Type, bool) {
	if c.Alive() != 1 {
		return 0, false
	}
	for _, t := range Types {
		if c[t] > 0 {
			return t, true
		}
	}
	return 0, false
}

func (c Counts) String() string {
	return fmt.Sprintf("Rock: %d, Paper: %d, Scissors: %d | Sum: %d",
		c[Rock], c[Paper], c[Scissors], c.Total())
}

func (c Counts) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int{
		Rock.Letter():     c[Rock],
		Paper.Letter():    c[Paper],
		Scissors.Letter(): c[Scissors],
	})
}

func (c *Counts) UnmarshalJSON(b []byte) error {
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var out Counts
	for k, v := range m {
		t, err := ParseType(k)
		if err != nil {
			return err
		}
		out[t] = v
	}
	*c = out
	return nil
}
