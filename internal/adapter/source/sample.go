package source

import (
	"context"
	"maps"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
)

// SampleFetcher serves fixed demonstration data so the pipeline can run
// without statistics-agency credentials.
type SampleFetcher struct{}

// NewSampleFetcher creates a SampleFetcher.
func NewSampleFetcher() *SampleFetcher {
	return &SampleFetcher{}
}

// FetchCities returns copies of the sample records for a country, or none
// for an unknown code.
func (SampleFetcher) FetchCities(_ context.Context, countryCode string) ([]domain.CityRecord, error) {
	rows := sampleData[countryCode]
	out := make([]domain.CityRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

type sampleCity struct {
	city     string
	lat, lon float64
	metrics  map[string]float64
}

func (s sampleCity) record() domain.CityRecord {
	lat, lon := s.lat, s.lon
	return domain.CityRecord{
		City:    s.city,
		Lat:     &lat,
		Lon:     &lon,
		Metrics: maps.Clone(s.metrics),
	}
}

func sample(city string, lat, lon, population, income, education, unemployment, crime, cost float64) sampleCity {
	return sampleCity{
		city: city,
		lat:  lat,
		lon:  lon,
		metrics: map[string]float64{
			domain.MetricPopulation:        population,
			domain.MetricMedianIncome:      income,
			domain.MetricEducationLevel:    education,
			domain.MetricUnemploymentRate:  unemployment,
			domain.MetricCrimeIndex:        crime,
			domain.MetricCostOfLivingIndex: cost,
		},
	}
}

var sampleData = map[string][]sampleCity{
	"USA": {
		sample("New York", 40.7128, -74.0060, 8468000, 75000, 65, 4.2, 47, 100),
		sample("San Francisco", 37.7749, -122.4194, 808000, 112000, 72, 3.9, 45, 120),
		sample("Austin", 30.2672, -97.7431, 974000, 76000, 60, 3.2, 42, 88),
	},
	"CAN": {
		sample("Toronto", 43.6532, -79.3832, 2930000, 82000, 68, 6.1, 44, 95),
		sample("Vancouver", 49.2827, -123.1207, 662000, 78000, 66, 5.8, 42, 105),
	},
	"GBR": {
		sample("London", 51.5074, -0.1278, 8982000, 65000, 62, 4.3, 53, 110),
		sample("Manchester", 53.4808, -2.2426, 553000, 48000, 55, 5.0, 49, 92),
	},
	"AUS": {
		sample("Sydney", -33.8688, 151.2093, 5312000, 82000, 64, 4.0, 41, 108),
		sample("Melbourne", -37.8136, 144.9631, 5078000, 80000, 63, 4.2, 40, 104),
	},
	"DEU": {
		sample("Berlin", 52.5200, 13.4050, 3769000, 62000, 60, 5.4, 44, 96),
		sample("Munich", 48.1351, 11.5820, 1472000, 70000, 62, 3.5, 36, 107),
	},
	"NLD": {
		sample("Amsterdam", 52.3676, 4.9041, 921000, 64000, 61, 3.2, 38, 102),
		sample("Rotterdam", 51.9244, 4.4777, 656000, 56000, 58, 4.1, 42, 97),
	},
}
