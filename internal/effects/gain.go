package effects

// Gain is a volume stage expressed in decibels.
type Gain struct {
	db     float64
	linear float32
}

func NewGain(db float64) *Gain {
	g := &Gain{}
	g.SetDB(db)
	return g
}

func (g *Gain) SetDB(db float64) {
	g.db = db
	g.linear = float32(DBToGain(db))
}

func (g *Gain) DB() float64     { return g.db }
func (g *Gain) Linear() float32 { return g.linear }

func (g *Gain) Process(l, r float32) (float32, float32) {
	return l * g.linear, r * g.linear
}

func (g *Gain) Reset() {}
