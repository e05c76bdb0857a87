package domain

import (
	"fmt"
	"math"
)

// Recognized metric names, in catalog order.
const (
	MetricPopulation        = "population"
	MetricMedianIncome      = "median_income"
	MetricEducationLevel    = "education_level"
	MetricUnemploymentRate  = "unemployment_rate"
	MetricCrimeIndex        = "crime_index"
	MetricCostOfLivingIndex = "cost_of_living_index"
)

// weightEpsilon bounds how far catalog weights may sum away from 1.0.
const weightEpsilon = 1e-9

// knownMetrics is the fixed set of names a Catalog may contain.
var knownMetrics = []string{
	MetricPopulation,
	MetricMedianIncome,
	MetricEducationLevel,
	MetricUnemploymentRate,
	MetricCrimeIndex,
	MetricCostOfLivingIndex,
}

// MetricSpec describes how one metric is normalized and weighted.
type MetricSpec struct {
	Name          string  `json:"name" koanf:"name"`
	Min           float64 `json:"min" koanf:"min"`
	Max           float64 `json:"max" koanf:"max"`
	Weight        float64 `json:"weight" koanf:"weight"`
	LowerIsBetter bool    `json:"lower_is_better" koanf:"lower_is_better"`
}

// DefaultMetricSpecs returns the built-in catalog configuration.
func DefaultMetricSpecs() []MetricSpec {
	return []MetricSpec{
		{Name: MetricPopulation, Min: 50000, Max: 10000000, Weight: 0.10},
		{Name: MetricMedianIncome, Min: 20000, Max: 150000, Weight: 0.22},
		{Name: MetricEducationLevel, Min: 0, Max: 100, Weight: 0.22},
		{Name: MetricUnemploymentRate, Min: 1, Max: 15, Weight: 0.16, LowerIsBetter: true},
		{Name: MetricCrimeIndex, Min: 20, Max: 80, Weight: 0.15, LowerIsBetter: true},
		{Name: MetricCostOfLivingIndex, Min: 70, Max: 140, Weight: 0.15, LowerIsBetter: true},
	}
}

// IsKnownMetric reports whether name belongs to the fixed metric set.
func IsKnownMetric(name string) bool {
	for _, m := range knownMetrics {
		if m == name {
			return true
		}
	}
	return false
}

// Catalog is the read-only metric configuration shared by every run.
type Catalog struct {
	order []string
	specs map[string]MetricSpec
}

// NewCatalog validates specs and builds a Catalog. Specs keep their given order.
func NewCatalog(specs []MetricSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("catalog: no metrics configured")
	}

	c := &Catalog{
		order: make([]string, 0, len(specs)),
		specs: make(map[string]MetricSpec, len(specs)),
	}

	var total float64
	for _, s := range specs {
		if !IsKnownMetric(s.Name) {
			return nil, &UnknownMetricError{Metric: s.Name}
		}
		if _, dup := c.specs[s.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate metric %q", s.Name)
		}
		if math.IsNaN(s.Min) || math.IsNaN(s.Max) || math.IsInf(s.Min, 0) || math.IsInf(s.Max, 0) {
			return nil, fmt.Errorf("catalog: metric %q: bounds must be finite", s.Name)
		}
		if !(s.Max > s.Min) {
			return nil, fmt.Errorf("catalog: metric %q: max %g must exceed min %g", s.Name, s.Max, s.Min)
		}
		if s.Weight < 0 || math.IsNaN(s.Weight) {
			return nil, fmt.Errorf("catalog: metric %q: invalid weight %g", s.Name, s.Weight)
		}
		total += s.Weight
		c.order = append(c.order, s.Name)
		c.specs[s.Name] = s
	}

	if math.Abs(total-1.0) > weightEpsilon {
		return nil, fmt.Errorf("catalog: weights sum to %g, want 1.0", total)
	}
	return c, nil
}

// DefaultCatalog returns a Catalog built from DefaultMetricSpecs.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultMetricSpecs())
	if err != nil {
		panic(err) // built-in configuration is invalid
	}
	return c
}

// Metrics returns metric names in catalog order.
func (c *Catalog) Metrics() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Spec returns the full specification of a metric.
func (c *Catalog) Spec(metric string) (MetricSpec, error) {
	s, ok := c.specs[metric]
	if !ok {
		return MetricSpec{}, &UnknownMetricError{Metric: metric}
	}
	return s, nil
}

// RangeOf returns the valid input range of a metric.
func (c *Catalog) RangeOf(metric string) (lo, hi float64, err error) {
	s, err := c.Spec(metric)
	if err != nil {
		return 0, 0, err
	}
	return s.Min, s.Max, nil
}

// WeightOf returns the composite-score weight of a metric.
func (c *Catalog) WeightOf(metric string) (float64, error) {
	s, err := c.Spec(metric)
	if err != nil {
		return 0, err
	}
	return s.Weight, nil
}

// IsLowerBetter reports whether smaller raw values are preferable.
func (c *Catalog) IsLowerBetter(metric string) (bool, error) {
	s, err := c.Spec(metric)
	if err != nil {
		return false, err
	}
	return s.LowerIsBetter, nil
}
