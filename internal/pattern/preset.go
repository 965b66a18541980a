package pattern

// Preset is a named pattern from the catalog. Steps may cover only part of a
// kit; Load fills the rest with false.
type Preset struct {
	ID    string
	Name  string
	Genre string
	BPM   float64
	Swing *float64
	Steps map[string][]bool
}
