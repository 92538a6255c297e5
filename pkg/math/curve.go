package math

// Curve is a value driven by normalized depth: Start at depth 0, End at
// depth 1, shaped by Power (0 or 1 = linear).
type Curve struct {
	Start float32 `yaml:"start"`
	End   float32 `yaml:"end"`
	Power float32 `yaml:"power,omitempty"`
}

// ConstCurve returns a curve with the same value at every depth.
func ConstCurve(v float32) Curve {
	return Curve{Start: v, End: v}
}

// LinearCurve returns a straight ramp from start to end.
func LinearCurve(start, end float32) Curve {
	return Curve{Start: start, End: end}
}

// Eval returns the curve value at depth (clamped to [0, 1]).
func (c Curve) Eval(depth float32) float32 {
	t := Clamp01(depth)
	if c.Power > 0 && c.Power != 1 {
		t = Pow(t, c.Power)
	}
	return c.Start + (c.End-c.Start)*t
}
