package fixture

import (
	"fmt"
	"maps"
	"math"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
)

// scoreTolerance absorbs float noise when comparing recomputed values.
const scoreTolerance = 1e-9

// Phase is one group of checks and the problems it found.
type Phase struct {
	Name   string
	Errors []string
}

func (p *Phase) errorf(format string, args ...any) {
	p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
}

// Passed reports whether the phase found no problems.
func (p *Phase) Passed() bool { return len(p.Errors) == 0 }

// Validate runs every check against f using catalog to recompute derived
// values.
func Validate(f *Fixture, catalog *domain.Catalog) []*Phase {
	return []*Phase{
		validateAlignment(f),
		validateNormalizedRange(f, catalog),
		validateReproducible(f, catalog),
		validateScores(f, catalog),
		validateRunLogs(f),
	}
}

// validateAlignment checks that the three per-city collections describe the
// same cities in the same order.
func validateAlignment(f *Fixture) *Phase {
	p := &Phase{Name: "Per-city records aligned"}
	if len(f.RawMetrics) != len(f.Normalized) || len(f.RawMetrics) != len(f.Scores) {
		p.errorf("record counts differ: raw=%d normalized=%d score=%d",
			len(f.RawMetrics), len(f.Normalized), len(f.Scores))
		return p
	}
	for i, raw := range f.RawMetrics {
		n, s := f.Normalized[i], f.Scores[i]
		if n.CountryCode != raw.CountryCode || n.City != raw.City || s.CountryCode != raw.CountryCode || s.City != raw.City {
			p.errorf("record %d: raw %s/%s, normalized %s/%s, score %s/%s",
				i, raw.CountryCode, raw.City, n.CountryCode, n.City, s.CountryCode, s.City)
		}
	}
	return p
}

func validateNormalizedRange(f *Fixture, catalog *domain.Catalog) *Phase {
	p := &Phase{Name: "Normalized values within 0-100"}
	for _, n := range f.Normalized {
		if len(n.Normalized) != len(catalog.Metrics()) {
			p.errorf("%s/%s: %d normalized metrics, want %d", n.CountryCode, n.City, len(n.Normalized), len(catalog.Metrics()))
		}
		for _, m := range catalog.Metrics() {
			v, ok := n.Normalized[m]
			if !ok {
				p.errorf("%s/%s: missing %s", n.CountryCode, n.City, m)
				continue
			}
			if v < 0 || v > 100 || math.IsNaN(v) {
				p.errorf("%s/%s: %s=%g out of range", n.CountryCode, n.City, m, v)
			}
		}
	}
	return p
}

// validateReproducible recomputes every normalized and score record from
// its raw record.
func validateReproducible(f *Fixture, catalog *domain.Catalog) *Phase {
	p := &Phase{Name: "Derived records reproducible from raw"}
	if len(f.RawMetrics) != len(f.Normalized) || len(f.RawMetrics) != len(f.Scores) {
		p.errorf("skipped: collections are not aligned")
		return p
	}

	normalizer := domain.NewNormalizer(catalog)
	scorer := domain.NewScorer(catalog)
	for i, raw := range f.RawMetrics {
		norm, err := normalizer.Normalize(raw.Metrics)
		if err != nil {
			p.errorf("%s/%s: normalize: %v", raw.CountryCode, raw.City, err)
			continue
		}
		if !maps.Equal(norm, f.Normalized[i].Normalized) {
			p.errorf("%s/%s: normalized %v, recomputed %v", raw.CountryCode, raw.City, f.Normalized[i].Normalized, norm)
		}

		score, breakdown, err := scorer.Score(norm)
		if err != nil {
			p.errorf("%s/%s: score: %v", raw.CountryCode, raw.City, err)
			continue
		}
		got := f.Scores[i]
		if math.Abs(got.Score-score) > scoreTolerance {
			p.errorf("%s/%s: score %.2f, recomputed %.2f", raw.CountryCode, raw.City, got.Score, score)
		}
		if !maps.Equal(breakdown, got.Breakdown) {
			p.errorf("%s/%s: breakdown %v, recomputed %v", raw.CountryCode, raw.City, got.Breakdown, breakdown)
		}
	}
	return p
}

// validateScores checks score bounds and that breakdown entries sum to the
// score within per-entry rounding.
func validateScores(f *Fixture, catalog *domain.Catalog) *Phase {
	p := &Phase{Name: "Scores bounded, breakdown drift within rounding"}
	maxDrift := 0.01*float64(len(catalog.Metrics())) + scoreTolerance
	for _, s := range f.Scores {
		if s.Score < 0 || s.Score > 100 {
			p.errorf("%s/%s: score %g out of range", s.CountryCode, s.City, s.Score)
		}
		var sum float64
		for _, v := range s.Breakdown {
			sum += v
		}
		if drift := math.Abs(sum - s.Score); drift > maxDrift {
			p.errorf("%s/%s: breakdown sums to %.4f, score %.2f (drift %.4f > %.4f)",
				s.CountryCode, s.City, sum, s.Score, drift, maxDrift)
		}
	}
	return p
}

// validateRunLogs checks that every run has one start entry followed by
// one finish entry.
func validateRunLogs(f *Fixture) *Phase {
	p := &Phase{Name: "Run log brackets every run"}
	byRun := make(map[string][]domain.RunLogEntry)
	var order []string
	for _, e := range f.RunLogs {
		if _, seen := byRun[e.RunID]; !seen {
			order = append(order, e.RunID)
		}
		byRun[e.RunID] = append(byRun[e.RunID], e)
	}
	if len(order) == 0 {
		p.errorf("no run log entries")
	}
	for _, id := range order {
		entries := byRun[id]
		if len(entries) != 2 {
			p.errorf("run %s: %d entries, want 2", id, len(entries))
			continue
		}
		start, finish := entries[0], entries[1]
		if start.Stage != domain.StageStart || start.Status != domain.StatusRunning || start.StartedAt == nil {
			p.errorf("run %s: malformed start entry %+v", id, start)
		}
		if finish.Stage != domain.StageFinish || finish.FinishedAt == nil {
			p.errorf("run %s: malformed finish entry %+v", id, finish)
		}
		if start.StartedAt != nil && finish.FinishedAt != nil && finish.FinishedAt.Before(*start.StartedAt) {
			p.errorf("run %s: finished before it started", id)
		}
	}
	return p
}
