// Package collider derives the implied confidence curve and the reward
// emissions for a stake split between two opposing token classes
// (ANTI and PRO).
//
// Everything here is pure: no I/O, no hidden state, and identical inputs
// always yield bit-identical outputs. Inputs are token amounts and are
// assumed non-negative; rejecting negative amounts is the caller's job.
//
// When the two legs are equal the canonical spread is undefined. That
// case is handled by explicit guards. Non-finite inputs, and parameters
// that leave the float64 range, are rejected with ErrNonFinite, so no Inf
// or NaN ever reaches a caller.
package collider

import (
	"errors"
	"fmt"
	"math"
)

// Samples is the number of points in every sampled series.
const Samples = 100

// Width is the half-width of Range measured in spreads: Range covers
// [u - Width*s, u + Width*s].
const Width = 5

var (
	// ErrInvalidInput is returned when both stake amounts are zero.
	ErrInvalidInput = errors.New("collider: anti and pro cannot both be zero")
	// ErrNonFinite is returned when an input is NaN or infinite, or the
	// curve it implies does not fit in float64.
	ErrNonFinite = errors.New("collider: value is not finite")
)

// Point is one sample of a density curve.
type Point struct {
	X     float64 `json:"x"`
	Value float64 `json:"value"`
}

// Distribution describes the curve implied by one stake pair. It is
// produced fresh on every call and shares no memory with other results.
type Distribution struct {
	Policy       string    `json:"policy"`
	U            float64   `json:"u"`
	S            float64   `json:"s"`
	Degenerate   bool      `json:"degenerate"`
	Range        []float64 `json:"range"`
	Distribution []Point   `json:"distribution"`
	Short        []float64 `json:"short"`
	Curve        []Point   `json:"curve"`
}

// Engine evaluates distributions under a fixed policy. It is stateless
// and safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine creates an engine for the given policy; nil selects the
// default policy.
func NewEngine(p Policy) *Engine {
	if p == nil {
		p = DefaultPolicy()
	}
	return &Engine{policy: p}
}

// Policy returns the policy this engine evaluates.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Compute maps a stake pair to its Distribution.
//
//	Range        = 100 samples over [u - 5s, u + 5s]
//	Distribution = N(x; u, s) for x in Range
//	Short        = 100 samples over [0, 1]
//	Curve        = N(x; u, s) for x in Short
//
// In the degenerate case S is reported as 0, Range falls back to the
// [0, 1] grid and every density value is 0.
func (e *Engine) Compute(anti, pro float64) (*Distribution, error) {
	if !finite(anti) || !finite(pro) {
		return nil, fmt.Errorf("%w (anti=%g, pro=%g)", ErrNonFinite, anti, pro)
	}
	if anti == 0 && pro == 0 {
		return nil, fmt.Errorf("%w (anti=%g, pro=%g)", ErrInvalidInput, anti, pro)
	}

	u, s, degenerate := e.policy.Params(anti, pro)
	if !finite(u) || !finite(s) || !finite(u-Width*s) || !finite(u+Width*s) {
		return nil, fmt.Errorf("%w: %s curve (u=%g, s=%g)", ErrNonFinite, e.policy.Name(), u, s)
	}

	d := &Distribution{
		Policy:     e.policy.Name(),
		U:          u,
		Degenerate: degenerate,
		Short:      linspace(0, 1),
	}

	if degenerate {
		d.Range = linspace(0, 1)
		d.Distribution = zeroCurve(d.Range)
		d.Curve = zeroCurve(d.Short)
		return d, nil
	}

	d.S = s
	d.Range = linspace(u-Width*s, u+Width*s)
	d.Distribution = densityCurve(d.Range, u, s)
	d.Curve = densityCurve(d.Short, u, s)
	return d, nil
}

// ComputeDistribution evaluates a stake pair under the default policy.
func ComputeDistribution(anti, pro float64) (*Distribution, error) {
	return NewEngine(nil).Compute(anti, pro)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// gaussian is the normal density with mean u and standard deviation s.
// s must be positive.
func gaussian(x, u, s float64) float64 {
	z := x - u
	return math.Exp(-(z*z)/(2*s*s)) / (math.Sqrt(2*math.Pi) * s)
}

// linspace returns Samples evenly spaced values from lo to hi inclusive.
// Each value is computed from lo directly so error does not accumulate.
func linspace(lo, hi float64) []float64 {
	out := make([]float64, Samples)
	span := hi - lo
	for i := range out {
		out[i] = lo + float64(i)/float64(Samples-1)*span
	}
	return out
}

func densityCurve(xs []float64, u, s float64) []Point {
	pts := make([]Point, len(xs))
	for i, x := range xs {
		pts[i] = Point{X: x, Value: gaussian(x, u, s)}
	}
	return pts
}

func zeroCurve(xs []float64) []Point {
	pts := make([]Point, len(xs))
	for i, x := range xs {
		pts[i] = Point{X: x}
	}
	return pts
}
