package collider

// EmissionPair holds the two reward quantities derived from a stake.
type EmissionPair struct {
	Baryon float64 `json:"baryon"`
	Photon float64 `json:"photon"`
}

// ComputeEmissions derives the rewards for a stake pair and its
// distribution:
//
//	base   = (anti + pro) / 2
//	baryon = base * u   (conviction: larger for lopsided stakes)
//	photon = base / s   (confidence: larger for sharp curves)
//
// Photon is 0 when the distribution is degenerate. A nil distribution
// yields a zero pair. base is computed from the halves so it cannot
// overflow for finite stakes; Baryon can still overflow under a scale
// dependent policy, and callers converting to decimals check it with
// Finite.
func ComputeEmissions(anti, pro float64, d *Distribution) EmissionPair {
	if d == nil {
		return EmissionPair{}
	}
	base := anti/2 + pro/2

	out := EmissionPair{Baryon: base * d.U}
	if d.Degenerate || d.S == 0 {
		return out
	}
	out.Photon = base / d.S
	return out
}

// Finite reports whether both emissions are finite numbers.
func (e EmissionPair) Finite() bool {
	return finite(e.Baryon) && finite(e.Photon)
}
