package domain

import "context"

// CityFetcher acquires the per-city metric records of one country.
type CityFetcher interface {
	// FetchCities returns zero or more city records for a country code.
	FetchCities(ctx context.Context, countryCode string) ([]CityRecord, error)
}
