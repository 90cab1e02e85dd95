package sim

import (
	"fmt"
	"strings"
)

type Type uint8

const (
	Rock Type = iota
	Paper
	Scissors
)

const numTypes = 3

// Types lists every type in display order.
var Types = [numTypes]Type{Rock, Paper, Scissors}

var typeNames = [numTypes]string{"Rock", "Paper", "Scissors"}

func (t Type) String() string {
	if int(t) < numTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Letter is the single-glyph label used by renderers.
func (t Type) Letter() string {
	return t.String()[:1]
}

func (t Type) Valid() bool {
	return int(t) < numTypes
}

// Prey is the type that t converts on contact.
func (t Type) Prey() Type {
	return (t + numTypes - 1) % numTypes
}

// Beats reports whether t dominates o.
func (t Type) Beats(o Type) bool {
	return t != o && t.Prey() == o
}

// Dominant returns the winner of an encounter between a and b. It does not
// depend on argument order; for equal types it returns that type.
func Dominant(a, b Type) Type {
	if b.Beats(a) {
		return b
	}
	return a
}

func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "rock":
		return Rock, nil
	case "p", "paper":
		return Paper, nil
	case "s", "scissors":
		return Scissors, nil
	}
	return 0, fmt.Errorf("unknown type %q", s)
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid type %d", uint8(t))
	}
	return []byte(t.Letter()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
