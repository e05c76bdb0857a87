package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/city-livability-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Registry maps country codes to their fetchers and keeps the country list
// in processing order. It implements domain.CityFetcher by dispatch.
type Registry struct {
	countries []domain.Country
	fetchers  map[string]domain.CityFetcher
}

// NewRegistry creates an empty registry over the given country list.
func NewRegistry(countries []domain.Country) *Registry {
	return &Registry{
		countries: countries,
		fetchers:  make(map[string]domain.CityFetcher, len(countries)),
	}
}

// Register assigns the fetcher for a country code.
func (r *Registry) Register(countryCode string, f domain.CityFetcher) {
	r.fetchers[countryCode] = f
}

// Countries returns the registered country list in declaration order.
func (r *Registry) Countries() []domain.Country {
	out := make([]domain.Country, len(r.countries))
	copy(out, r.countries)
	return out
}

// FetchCities delegates to the country's fetcher. A country without a
// fetcher has no cities.
func (r *Registry) FetchCities(ctx context.Context, countryCode string) ([]domain.CityRecord, error) {
	f, ok := r.fetchers[countryCode]
	if !ok {
		return nil, nil
	}
	return f.FetchCities(ctx, countryCode)
}

// Options configures NewDefaultRegistry.
type Options struct {
	BaseURL   string
	APIKeys   map[string]string // country code -> API key
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// NewDefaultRegistry wires every country of Countries. A country uses the
// HTTP fetcher when a base URL and its API key are configured, and the
// sample data otherwise. Remote fetchers are cached when CacheTTL > 0.
func NewDefaultRegistry(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Registry {
	r := NewRegistry(Countries())
	samples := NewSampleFetcher()

	for _, c := range r.countries {
		key := opts.APIKeys[c.Code]
		if opts.BaseURL == "" || key == "" {
			r.Register(c.Code, samples)
			continue
		}

		var f domain.CityFetcher = NewHTTPFetcher(opts.BaseURL, key, opts.Timeout, metrics, logger)
		if opts.CacheTTL > 0 {
			f = NewCachedFetcher(f, opts.CacheSize, opts.CacheTTL, clockwork.NewRealClock(), metrics)
		}
		r.Register(c.Code, f)
		logger.Info("remote acquisition enabled", "country", c.Code, "cached", opts.CacheTTL > 0)
	}
	return r
}
