// Command genfixtures runs the pipeline over the built-in sample data with a
// frozen clock and a name-based run id, and writes every persisted
// collection to a JSON fixture. Output is byte-for-byte reproducible for a
// given catalog.
//
// Usage:
//
//	go run ./cmd/genfixtures -out data/fixtures/sample_run.json [-catalog catalog.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/adapter/source"
	"github.com/couchcryptid/city-livability-etl/internal/adapter/store"
	"github.com/couchcryptid/city-livability-etl/internal/config"
	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/city-livability-etl/internal/fixture"
	"github.com/couchcryptid/city-livability-etl/internal/observability"
	"github.com/couchcryptid/city-livability-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// fixtureTime is the frozen run time recorded in generated fixtures.
var fixtureTime = time.Date(2026, time.January, 1, 6, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the JSON fixture")
	catalogFile := flag.String("catalog", "", "optional YAML catalog override")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	catalog, err := config.LoadCatalog(*catalogFile)
	if err != nil {
		return err
	}

	// Set a fixed clock for reproducible run log timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(fixtureTime))
	defer domain.SetClock(nil)

	logger := sharedobs.NewLogger("warn", "text")
	metrics := observability.NewMetricsForTesting()
	docs := store.NewMemoryStore()
	runID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("city-livability-etl/fixtures")).String()

	p := pipeline.New(source.NewDefaultRegistry(source.Options{}, metrics, logger), docs, catalog, logger, metrics,
		pipeline.WithRunIDs(func() string { return runID }))

	ctx := context.Background()
	if err := p.SeedCountries(ctx); err != nil {
		return err
	}
	if _, err := p.Run(ctx); err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	f, err := fixture.FromCollections(docs.Collections())
	if err != nil {
		return err
	}
	if err := fixture.Write(*out, f); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}

	log.Printf("wrote fixture: %s (%d countries, %d cities)", *out, len(f.Countries), len(f.Scores))
	printStats(f)
	return nil
}

// printStats logs the score range per country.
func printStats(f *fixture.Fixture) {
	type span struct{ lo, hi float64 }
	spans := make(map[string]*span)
	var order []string
	for _, s := range f.Scores {
		sp, ok := spans[s.CountryCode]
		if !ok {
			sp = &span{lo: s.Score, hi: s.Score}
			spans[s.CountryCode] = sp
			order = append(order, s.CountryCode)
		}
		sp.lo = min(sp.lo, s.Score)
		sp.hi = max(sp.hi, s.Score)
	}
	for _, code := range order {
		log.Printf("  %s: scores %.2f-%.2f", code, spans[code].lo, spans[code].hi)
	}
}
