// Package source provides the city-metric acquisition adapters: fixed sample
// data, a statistics-agency HTTP client, a caching decorator, and the
// registry mapping each country code to its fetcher.
package source

import "github.com/couchcryptid/city-livability-etl/internal/domain"

// Countries returns the fixed country list in processing order.
func Countries() []domain.Country {
	return []domain.Country{
		{Code: "USA", Name: "United States"},
		{Code: "CAN", Name: "Canada"},
		{Code: "GBR", Name: "United Kingdom"},
		{Code: "AUS", Name: "Australia"},
		{Code: "DEU", Name: "Germany"},
		{Code: "NLD", Name: "Netherlands"},
	}
}
