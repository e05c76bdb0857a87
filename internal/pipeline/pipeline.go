package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/city-livability-etl/internal/observability"
	"github.com/google/uuid"
)

// ErrRunInProgress is returned by Run while another run is active.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Source lists the countries to process and fetches their cities.
type Source interface {
	Countries() []domain.Country
	domain.CityFetcher
}

// DocumentStore persists pipeline output.
type DocumentStore interface {
	Create(ctx context.Context, collection string, doc any) error
	Find(ctx context.Context, collection string, q domain.DocumentQuery) ([]json.RawMessage, error)
}

// State is the lifecycle state of the most recent run.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return "IDLE"
	}
}

// Pipeline acquires, normalizes, scores, and persists every city of every
// configured country. Runs are strictly sequential.
type Pipeline struct {
	source     Source
	store      DocumentStore
	normalizer *domain.Normalizer
	scorer     *domain.Scorer
	logger     *slog.Logger
	metrics    *observability.Metrics

	newRunID func() string

	running atomic.Bool
	state   atomic.Int32
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithRunIDs replaces the random run id generator.
func WithRunIDs(next func() string) Option {
	return func(p *Pipeline) { p.newRunID = next }
}

// New creates a Pipeline over the given catalog and collaborators.
func New(source Source, store DocumentStore, catalog *domain.Catalog, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:     source,
		store:      store,
		normalizer: domain.NewNormalizer(catalog),
		scorer:     domain.NewScorer(catalog),
		logger:     logger,
		metrics:    metrics,
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the state of the most recent run.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// CheckReadiness reports an error while the last completed run failed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.State() == StateFailed {
		return errors.New("last pipeline run failed")
	}
	return nil
}

// SeedCountries persists the country list when the country collection is
// empty.
func (p *Pipeline) SeedCountries(ctx context.Context) error {
	existing, err := p.store.Find(ctx, domain.CollectionCountry, domain.DocumentQuery{Limit: 1})
	if err != nil {
		return fmt.Errorf("read countries: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	countries := p.source.Countries()
	for _, c := range countries {
		if err := p.store.Create(ctx, domain.CollectionCountry, c); err != nil {
			return &domain.PersistenceError{Collection: domain.CollectionCountry, Err: err}
		}
	}
	p.logger.Info("countries seeded", "count", len(countries))
	return nil
}

// Run executes one full pass and returns its run id. Acquisition failures
// and cities with incomplete scores are skipped; persistence failures and
// catalog inconsistencies abort the run.
func (p *Pipeline) Run(ctx context.Context) (string, error) {
	if !p.running.CompareAndSwap(false, true) {
		return "", ErrRunInProgress
	}
	defer p.running.Store(false)

	p.state.Store(int32(StateRunning))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	runID := p.newRunID()
	startedAt := domain.Now()
	logger := p.logger.With("run_id", runID)
	logger.Info("pipeline run started")

	start := domain.RunLogEntry{
		RunID:     runID,
		Stage:     domain.StageStart,
		Status:    domain.StatusRunning,
		StartedAt: &startedAt,
	}
	if err := p.store.Create(ctx, domain.CollectionRunLog, start); err != nil {
		return runID, p.fail(ctx, logger, runID, startedAt,
			&domain.PersistenceError{Collection: domain.CollectionRunLog, Err: err})
	}

	var failedCountries []string
	for _, country := range p.source.Countries() {
		if err := ctx.Err(); err != nil {
			return runID, p.fail(ctx, logger, runID, startedAt, err)
		}

		cities, err := p.source.FetchCities(ctx, country.Code)
		if err != nil {
			aerr := &domain.AcquisitionError{Country: country.Code, Err: err}
			logger.Warn("acquisition failed, skipping country", "country", country.Code, "error", aerr)
			p.metrics.AcquisitionErrors.WithLabelValues(country.Code).Inc()
			failedCountries = append(failedCountries, country.Code)
			continue
		}

		for _, city := range cities {
			err := p.processCity(ctx, country.Code, city)
			var missing *domain.MissingMetricError
			switch {
			case err == nil:
				p.metrics.CitiesProcessed.Inc()
			case errors.As(err, &missing):
				logger.Warn("incomplete metrics, skipping city",
					"country", country.Code, "city", city.City, "metric", missing.Metric)
				p.metrics.CitiesSkipped.Inc()
			default:
				return runID, p.fail(ctx, logger, runID, startedAt, err)
			}
		}
	}

	finishedAt := domain.Now()
	finish := domain.RunLogEntry{
		RunID:      runID,
		Stage:      domain.StageFinish,
		Status:     domain.StatusSuccess,
		Message:    acquisitionMessage(failedCountries),
		StartedAt:  &startedAt,
		FinishedAt: &finishedAt,
	}
	if err := p.store.Create(ctx, domain.CollectionRunLog, finish); err != nil {
		perr := &domain.PersistenceError{Collection: domain.CollectionRunLog, Err: err}
		p.finishFailed(logger, startedAt, perr)
		return runID, perr
	}

	p.state.Store(int32(StateSucceeded))
	p.metrics.RunsTotal.WithLabelValues(domain.StatusSuccess).Inc()
	p.metrics.RunDuration.Observe(finishedAt.Sub(startedAt).Seconds())
	logger.Info("pipeline run finished", "failed_countries", len(failedCountries))
	return runID, nil
}

// processCity computes every derived value before writing anything so a
// city whose score cannot be computed leaves no records behind.
func (p *Pipeline) processCity(ctx context.Context, countryCode string, city domain.CityRecord) error {
	normalized, err := p.normalizer.Normalize(city.Metrics)
	if err != nil {
		return err
	}
	score, breakdown, err := p.scorer.Score(normalized)
	if err != nil {
		return err
	}

	writes := []struct {
		collection string
		doc        any
	}{
		{domain.CollectionRawMetric, domain.RawMetricRecord{
			CountryCode: countryCode,
			City:        city.City,
			Metrics:     reportedMetrics(city.Metrics),
			Source:      sourceInfo(countryCode, city),
		}},
		{domain.CollectionNormalizedMetric, domain.NormalizedMetricRecord{
			CountryCode: countryCode,
			City:        city.City,
			Normalized:  normalized,
		}},
		{domain.CollectionScore, domain.ScoreRecord{
			CountryCode: countryCode,
			City:        city.City,
			Score:       score,
			Breakdown:   breakdown,
		}},
	}
	for _, w := range writes {
		if err := p.store.Create(ctx, w.collection, w.doc); err != nil {
			return &domain.PersistenceError{Collection: w.collection, Err: err}
		}
	}

	p.metrics.CityScore.Observe(score)
	return nil
}

// fail records a failed run with a best-effort finish entry. The entry is
// written even when ctx is already cancelled.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, runID string, startedAt time.Time, cause error) error {
	finishedAt := domain.Now()
	entry := domain.RunLogEntry{
		RunID:      runID,
		Stage:      domain.StageFinish,
		Status:     domain.StatusFailed,
		Message:    cause.Error(),
		StartedAt:  &startedAt,
		FinishedAt: &finishedAt,
	}
	if err := p.store.Create(context.WithoutCancel(ctx), domain.CollectionRunLog, entry); err != nil {
		logger.Error("write failed run log entry", "error", err)
	}

	p.finishFailed(logger, startedAt, cause)
	return cause
}

func (p *Pipeline) finishFailed(logger *slog.Logger, startedAt time.Time, cause error) {
	var perr *domain.PersistenceError
	if errors.As(cause, &perr) {
		p.metrics.PersistenceErrors.WithLabelValues(perr.Collection).Inc()
	}
	p.state.Store(int32(StateFailed))
	p.metrics.RunsTotal.WithLabelValues(domain.StatusFailed).Inc()
	p.metrics.RunDuration.Observe(domain.Now().Sub(startedAt).Seconds())
	logger.Error("pipeline run failed", "error", cause)
}

func acquisitionMessage(failed []string) string {
	if len(failed) == 0 {
		return ""
	}
	return "acquisition failed for " + strings.Join(failed, ", ")
}

func reportedMetrics(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return maps.Clone(m)
}

func sourceInfo(countryCode string, city domain.CityRecord) map[string]any {
	info := map[string]any{"adapter": countryCode}
	if city.Lat != nil && city.Lon != nil {
		info["lat"] = *city.Lat
		info["lon"] = *city.Lon
	}
	return info
}
