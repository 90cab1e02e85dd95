package sim

import "encoding/json"

type Status uint8

const (
	Running Status = iota
	Concluded
)

func (s Status) String() string {
	if s == Concluded {
		return "concluded"
	}
	return "running"
}

// Match latches the first moment a single type is left standing.
type Match struct {
	Status Status
	Winner Type
}

func (m Match) Concluded() bool { return m.Status == Concluded }

// Evaluate concludes the match when exactly one type has agents left and
// reports whether this call did so. Once concluded it never changes again.
func (m *Match) Evaluate(c Counts) bool {
	if m.Status == Concluded {
		return false
	}
	w, ok := c.Sole()
	if !ok {
		return false
	}
	m.Status = Concluded
	m.Winner = w
	return true
}

func (m Match) MarshalJSON() ([]byte, error) {
	out := struct {
		Status string `json:"status"`
		Winner *Type  `json:"winner,omitempty"`
	}{Status: m.Status.String()}
	if m.Concluded() {
		w := m.Winner
		out.Winner = &w
	}
	return json.Marshal(out)
}
