package collider

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownPolicy is returned by PolicyByName for unregistered names.
var ErrUnknownPolicy = errors.New("collider: unknown distribution policy")

// Policy maps a stake pair to the mean and spread of the implied curve.
//
// Several incompatible formulas have shipped over time, so each one is a
// named policy and the engine never guesses which is in effect. A policy
// reports degenerate=true when s is undefined for the inputs; the engine
// then skips density evaluation entirely.
type Policy interface {
	Name() string
	Params(anti, pro float64) (u, s float64, degenerate bool)
}

// Policy names.
const (
	PolicyDominantShare = "dominant-share"
	PolicyAlpha         = "alpha"
)

// DominantShare is the canonical policy:
//
//	u = max(anti, pro) / (anti + pro)
//	s = (anti + pro) / |anti - pro|
//
// u always lies in [0.5, 1] and is symmetric in its arguments. s grows
// without bound as the two legs converge and is undefined when they are
// equal, which is reported as degenerate.
type DominantShare struct{}

func (DominantShare) Name() string { return PolicyDominantShare }

func (DominantShare) Params(anti, pro float64) (float64, float64, bool) {
	sum := anti + pro
	if math.IsInf(sum, 1) {
		// Halving keeps every ratio exact and brings the sum back in range.
		anti, pro = anti/2, pro/2
		sum = anti + pro
	}
	u := math.Max(anti, pro) / sum
	diff := math.Abs(anti - pro)
	if diff == 0 {
		return u, 0, true
	}
	return u, sum / diff, false
}

// Alpha is the first-release formula. The mean is the absolute stake
// difference and the spread is half the sum scaled by that difference.
// Small positive values are floored to 1 so the curve stays readable.
//
// Only the parameters are carried over from the first release. That
// release sampled its short curve from the range filtered to x >= 0, so
// its length varied; the engine always samples Short over [0, 1] for
// every policy. Alpha is scale dependent (u grows with the stakes), so
// large stakes can push the range out of float64 and Compute then
// returns ErrNonFinite.
type Alpha struct{}

func (Alpha) Name() string { return PolicyAlpha }

func (Alpha) Params(anti, pro float64) (float64, float64, bool) {
	diff := math.Abs(anti - pro)
	half := anti/2 + pro/2

	u := diff
	if diff > 0 && diff < 1 {
		u = 1
	}

	var s float64
	switch {
	case half > 0 && half < 0.5:
		s = 1
	case diff == 0:
		s = half
	default:
		s = half / diff
	}
	return u, s, false
}

var policies = map[string]Policy{
	PolicyDominantShare: DominantShare{},
	PolicyAlpha:         Alpha{},
}

// PolicyByName resolves a registered policy. An empty name selects the
// default policy.
func PolicyByName(name string) (Policy, error) {
	if name == "" {
		return DefaultPolicy(), nil
	}
	p, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownPolicy, name, PolicyNames())
	}
	return p, nil
}

// PolicyNames lists the registered policy names in sorted order.
func PolicyNames() []string {
	names := make([]string, 0, len(policies))
	for n := range policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultPolicy returns the canonical DominantShare policy.
func DefaultPolicy() Policy {
	return DominantShare{}
}
