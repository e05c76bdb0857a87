package domain

// Scorer combines normalized metrics into a weighted composite score.
type Scorer struct {
	catalog *Catalog
}

// NewScorer creates a Scorer for the given catalog.
func NewScorer(catalog *Catalog) *Scorer {
	return &Scorer{catalog: catalog}
}

// Score returns the composite score in [0, 100] and each metric's rounded
// contribution. Contributions are rounded independently of the total, so
// their sum may drift from the score by up to 0.01 per metric.
//
// Every catalog metric must be present in normalized; input is expected to
// come from Normalizer.Normalize.
func (s *Scorer) Score(normalized map[string]float64) (float64, map[string]float64, error) {
	breakdown := make(map[string]float64, len(s.catalog.order))
	var total float64
	for _, m := range s.catalog.order {
		w, err := s.catalog.WeightOf(m)
		if err != nil {
			return 0, nil, err
		}
		v, ok := normalized[m]
		if !ok {
			return 0, nil, &MissingMetricError{Metric: m}
		}
		part := v / 100.0 * w
		breakdown[m] = round2(part * 100)
		total += part
	}
	return round2(total * 100), breakdown, nil
}
