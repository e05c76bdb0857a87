// Command validate checks a fixture written by genfixtures: per-city records
// line up across collections, normalized values stay within 0-100, derived
// records are reproducible from raw metrics, breakdowns sum to their score
// within rounding, and every run is bracketed by a start and finish entry.
//
// Usage:
//
//	go run ./cmd/validate -fixture data/fixtures/sample_run.json [-catalog catalog.yaml]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/city-livability-etl/internal/config"
	"github.com/couchcryptid/city-livability-etl/internal/fixture"
)

func main() {
	fixturePath := flag.String("fixture", "", "path to a JSON fixture")
	catalogFile := flag.String("catalog", "", "optional YAML catalog override used to recompute scores")
	flag.Parse()

	if *fixturePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*fixturePath, *catalogFile))
}

func run(fixturePath, catalogFile string) int {
	fmt.Println("=== City Livability Fixture Validation ===")
	fmt.Println()

	catalog, err := config.LoadCatalog(catalogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load catalog: %v\n", err)
		return 1
	}
	f, err := fixture.Load(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}

	phases := fixture.Validate(f, catalog)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.Passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.Errors))
			allPassed = false
		}
		fmt.Printf("  %-50s %s\n", p.Name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d countries, %d raw, %d normalized, %d scores, %d run log entries\n",
		len(f.Countries), len(f.RawMetrics), len(f.Normalized), len(f.Scores), len(f.RunLogs))

	// Print detailed errors.
	for _, p := range phases {
		if p.Passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.Name)
		for i, e := range p.Errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}
