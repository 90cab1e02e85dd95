package sim

// Overlaps is the axis-aligned box test for two agents of side size.
func Overlaps(a, b *Agent, size float64) bool {
	return a.X < b.X+size &&
		a.X+size > b.X &&
		a.Y < b.Y+size &&
		a.Y+size > b.Y
}

// Resolve checks every unordered pair once, in slice order, and converts
// overlapping agents of different types to the dominant one. Types are read
// at the moment a pair is visited, so conversions earlier in the pass feed
// into later pairs. It returns how many agents changed type.
func Resolve(agents []Agent, size float64) int {
	converted := 0
	for i := 0; i < len(agents); i++ {
		a := &agents[i]
		for j := i + 1; j < len(agents); j++ {
			b := &agents[j]
			if a.Type == b.Type || !Overlaps(a, b, size) {
				continue
			}
			winner := Dominant(a.Type, b.Type)
			if a.Type != winner {
				a.Type = winner
			} else {
				b.Type = winner
			}
			converted++
		}
	}
	return converted
}
