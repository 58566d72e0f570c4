package valueobjects

// Position is a normalized layout coordinate. Both axes lie in [0,1] once
// the layout engine has normalized a solve.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Center is where a lone node is placed.
var Center = Position{X: 0.5, Y: 0.5}

// InUnitSquare reports whether both coordinates lie in [0,1].
func (p Position) InUnitSquare() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}
