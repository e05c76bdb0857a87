package domain

import "math"

// Normalizer maps raw metric values onto the 0–100 scale of a Catalog.
type Normalizer struct {
	catalog *Catalog
}

// NewNormalizer creates a Normalizer for the given catalog.
func NewNormalizer(catalog *Catalog) *Normalizer {
	return &Normalizer{catalog: catalog}
}

// Normalize returns one value in [0, 100] for every catalog metric.
// Metrics absent from raw, or NaN, normalize to 0 without inversion.
func (n *Normalizer) Normalize(raw map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(n.catalog.order))
	for _, m := range n.catalog.order {
		lo, hi, err := n.catalog.RangeOf(m)
		if err != nil {
			return nil, err
		}
		lowerBetter, err := n.catalog.IsLowerBetter(m)
		if err != nil {
			return nil, err
		}

		v, ok := raw[m]
		if !ok || math.IsNaN(v) {
			out[m] = 0
			continue
		}

		f := fraction(v, lo, hi)
		if lowerBetter {
			f = 1.0 - f
		}
		out[m] = round2(f * 100)
	}
	return out, nil
}

// fraction min-max scales v into [lo, hi] and clamps to [0, 1].
// A degenerate range yields 0.
func fraction(v, lo, hi float64) float64 {
	if math.IsNaN(v) || hi == lo {
		return 0
	}
	f := (v - lo) / (hi - lo)
	return math.Max(0, math.Min(1, f))
}

// round2 rounds to two decimal places, ties to even.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
