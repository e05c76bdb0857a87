// Package fixture snapshots a pipeline run into a JSON file and checks a
// snapshot for internal consistency.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
)

// Fixture holds every persisted collection of one or more runs, each in
// insertion order.
type Fixture struct {
	Countries  []domain.Country                `json:"country"`
	RawMetrics []domain.RawMetricRecord        `json:"rawmetric"`
	Normalized []domain.NormalizedMetricRecord `json:"normalizedmetric"`
	Scores     []domain.ScoreRecord            `json:"score"`
	RunLogs    []domain.RunLogEntry            `json:"etllog"`
}

// FromCollections decodes raw collections as returned by
// store.MemoryStore.Collections.
func FromCollections(collections map[string][]json.RawMessage) (*Fixture, error) {
	var f Fixture
	targets := map[string]any{
		domain.CollectionCountry:          &f.Countries,
		domain.CollectionRawMetric:        &f.RawMetrics,
		domain.CollectionNormalizedMetric: &f.Normalized,
		domain.CollectionScore:            &f.Scores,
		domain.CollectionRunLog:           &f.RunLogs,
	}
	for name, target := range targets {
		docs := collections[name]
		if docs == nil {
			docs = []json.RawMessage{}
		}
		data, err := json.Marshal(docs)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		if err := json.Unmarshal(data, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return &f, nil
}

// Write stores the fixture as indented JSON.
func Write(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644) //nolint:gosec // fixture files are not sensitive
}

// Load reads a fixture written by Write.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from a CLI flag
	if err != nil {
		return nil, err
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}
