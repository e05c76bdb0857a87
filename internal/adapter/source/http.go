package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/city-livability-etl/internal/observability"
)

// HTTPFetcher implements domain.CityFetcher against a statistics-agency
// gateway serving GET {baseURL}/{code}/cities.json.
type HTTPFetcher struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewHTTPFetcher creates a fetcher authenticating with token.
func NewHTTPFetcher(baseURL, token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchCities requests the city list of one country.
func (f *HTTPFetcher) FetchCities(ctx context.Context, countryCode string) ([]domain.CityRecord, error) {
	u := fmt.Sprintf("%s/%s/cities.json", f.baseURL, url.PathEscape(countryCode))
	params := url.Values{"access_token": {f.token}}

	start := time.Now()
	cities, err := f.doRequest(ctx, u+"?"+params.Encode(), countryCode)
	f.metrics.SourceAPIDuration.Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	f.metrics.SourceRequests.WithLabelValues(countryCode, outcome).Inc()
	return cities, err
}

func (f *HTTPFetcher) doRequest(ctx context.Context, fullURL, countryCode string) ([]domain.CityRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s cities request: %w", countryCode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("source API error: status %d: %s", resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]domain.CityRecord, 0, len(payload.Cities))
	for i, row := range payload.Cities {
		rec, ok := parseRow(row)
		if !ok {
			f.logger.Warn("skipping city row without name", "country", countryCode, "index", i)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Source API response types.

type response struct {
	Cities []map[string]any `json:"cities"`
}

// parseRow extracts the city name, coordinates, and any recognized metrics.
// Numeric strings are accepted; anything else is treated as not reported.
func parseRow(row map[string]any) (domain.CityRecord, bool) {
	name, _ := row["city"].(string)
	if name == "" {
		return domain.CityRecord{}, false
	}

	rec := domain.CityRecord{City: name, Metrics: map[string]float64{}}
	if v, ok := toFloat(row["lat"]); ok {
		rec.Lat = &v
	}
	if v, ok := toFloat(row["lon"]); ok {
		rec.Lon = &v
	}
	for key, raw := range row {
		if !domain.IsKnownMetric(key) {
			continue
		}
		if v, ok := toFloat(raw); ok {
			rec.Metrics[key] = v
		}
	}
	return rec, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, isFinite(x)
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil && isFinite(f)
	default:
		return 0, false
	}
}

// ParseFloat accepts "NaN" and "Inf", which cannot be encoded as JSON.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
