// Package query serves read-only views over the documents the pipeline
// persists. Every view treats missing data as an empty result.
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
)

const (
	DefaultTopCitiesLimit = 20
	DefaultRunLogsLimit   = 50
)

// Finder reads documents from a collection.
type Finder interface {
	Find(ctx context.Context, collection string, q domain.DocumentQuery) ([]json.RawMessage, error)
}

// CityResult is a score record with the city's normalized metrics attached.
type CityResult struct {
	domain.ScoreRecord
	Normalized map[string]float64 `json:"normalized"`
}

// CitySide is one side of a comparison. Both fields are nil when the city
// has no records.
type CitySide struct {
	Score      *domain.ScoreRecord            `json:"score"`
	Normalized *domain.NormalizedMetricRecord `json:"normalized"`
}

// Comparison places two cities side by side.
type Comparison struct {
	A CitySide `json:"a"`
	B CitySide `json:"b"`
}

// Service implements the query surface over a Finder.
type Service struct {
	finder Finder
}

// NewService creates a Service.
func NewService(finder Finder) *Service {
	return &Service{finder: finder}
}

// Countries lists the seeded countries.
func (s *Service) Countries(ctx context.Context) ([]domain.Country, error) {
	return find[domain.Country](ctx, s.finder, domain.CollectionCountry, domain.DocumentQuery{})
}

// TopCities lists score records by score, highest first. A non-positive
// limit uses DefaultTopCitiesLimit.
func (s *Service) TopCities(ctx context.Context, limit int) ([]domain.ScoreRecord, error) {
	if limit <= 0 {
		limit = DefaultTopCitiesLimit
	}
	return find[domain.ScoreRecord](ctx, s.finder, domain.CollectionScore, domain.DocumentQuery{
		SortField: "score",
		SortKind:  domain.SortNumber,
		Desc:      true,
		Limit:     limit,
	})
}

// CountryCities lists a country's score records, each with the latest
// normalized metrics for that city or an empty map when there are none.
func (s *Service) CountryCities(ctx context.Context, code string) ([]CityResult, error) {
	byCountry := domain.DocumentQuery{Filter: map[string]string{"country_code": code}}

	scores, err := find[domain.ScoreRecord](ctx, s.finder, domain.CollectionScore, byCountry)
	if err != nil {
		return nil, err
	}
	normalized, err := find[domain.NormalizedMetricRecord](ctx, s.finder, domain.CollectionNormalizedMetric, byCountry)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]map[string]float64, len(normalized))
	for _, n := range normalized {
		latest[n.City] = n.Normalized
	}

	out := make([]CityResult, 0, len(scores))
	for _, sc := range scores {
		norm := latest[sc.City]
		if norm == nil {
			norm = map[string]float64{}
		}
		out = append(out, CityResult{ScoreRecord: sc, Normalized: norm})
	}
	return out, nil
}

// Compare returns the latest score and normalized records of two cities.
func (s *Service) Compare(ctx context.Context, a, b string) (Comparison, error) {
	sideA, err := s.citySide(ctx, a)
	if err != nil {
		return Comparison{}, err
	}
	sideB, err := s.citySide(ctx, b)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{A: sideA, B: sideB}, nil
}

func (s *Service) citySide(ctx context.Context, city string) (CitySide, error) {
	byCity := domain.DocumentQuery{Filter: map[string]string{"city": city}}

	scores, err := find[domain.ScoreRecord](ctx, s.finder, domain.CollectionScore, byCity)
	if err != nil {
		return CitySide{}, err
	}
	normalized, err := find[domain.NormalizedMetricRecord](ctx, s.finder, domain.CollectionNormalizedMetric, byCity)
	if err != nil {
		return CitySide{}, err
	}

	var side CitySide
	if n := len(scores); n > 0 {
		side.Score = &scores[n-1]
	}
	if n := len(normalized); n > 0 {
		side.Normalized = &normalized[n-1]
	}
	return side, nil
}

// RunLogs lists run log entries by start time, most recent first. A
// non-positive limit uses DefaultRunLogsLimit.
func (s *Service) RunLogs(ctx context.Context, limit int) ([]domain.RunLogEntry, error) {
	if limit <= 0 {
		limit = DefaultRunLogsLimit
	}
	return find[domain.RunLogEntry](ctx, s.finder, domain.CollectionRunLog, domain.DocumentQuery{
		SortField: "started_at",
		SortKind:  domain.SortTime,
		Desc:      true,
		Limit:     limit,
	})
}

func find[T any](ctx context.Context, f Finder, collection string, q domain.DocumentQuery) ([]T, error) {
	docs, err := f.Find(ctx, collection, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]T, 0, len(docs))
	for _, raw := range docs {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s document: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}
