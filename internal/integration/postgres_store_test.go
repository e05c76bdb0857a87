//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/adapter/store"
	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/city-livability-etl/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPostgresStore_MatchesMemoryStore runs the same queries against both
// stores and expects identical results.
func TestPostgresStore_MatchesMemoryStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := store.NewPostgresStore(ctx, startPostgres(ctx, t), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })
	require.NoError(t, pg.Ping(ctx))

	mem := store.NewMemoryStore()

	started := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	later := started.Add(time.Hour)
	docs := []struct {
		collection string
		doc        any
	}{
		{domain.CollectionScore, domain.ScoreRecord{CountryCode: "USA", City: "New York", Score: 61.23}},
		{domain.CollectionScore, domain.ScoreRecord{CountryCode: "USA", City: "Austin", Score: 70.5}},
		{domain.CollectionScore, domain.ScoreRecord{CountryCode: "CAN", City: "Toronto", Score: 65}},
		{domain.CollectionScore, domain.ScoreRecord{CountryCode: "GBR", City: "London", Score: 70.5}},
		{domain.CollectionRunLog, domain.RunLogEntry{RunID: "a", Stage: domain.StageStart, StartedAt: &started}},
		{domain.CollectionRunLog, domain.RunLogEntry{RunID: "b", Stage: domain.StageStart, StartedAt: &later}},
		{domain.CollectionRunLog, map[string]string{"run_id": "c", "stage": "finish"}},
	}
	for _, d := range docs {
		require.NoError(t, pg.Create(ctx, d.collection, d.doc))
		require.NoError(t, mem.Create(ctx, d.collection, d.doc))
	}

	queries := []struct {
		name       string
		collection string
		q          domain.DocumentQuery
	}{
		{"all", domain.CollectionScore, domain.DocumentQuery{}},
		{"filter", domain.CollectionScore, domain.DocumentQuery{Filter: map[string]string{"country_code": "USA"}}},
		{"score desc", domain.CollectionScore, domain.DocumentQuery{SortField: "score", SortKind: domain.SortNumber, Desc: true}},
		{"score asc limit", domain.CollectionScore, domain.DocumentQuery{SortField: "score", SortKind: domain.SortNumber, Limit: 2}},
		{"city text", domain.CollectionScore, domain.DocumentQuery{SortField: "city"}},
		{"started desc", domain.CollectionRunLog, domain.DocumentQuery{SortField: "started_at", SortKind: domain.SortTime, Desc: true}},
		{"missing collection", "nothing", domain.DocumentQuery{}},
	}
	for _, tt := range queries {
		t.Run(tt.name, func(t *testing.T) {
			want, err := mem.Find(ctx, tt.collection, tt.q)
			require.NoError(t, err)
			got, err := pg.Find(ctx, tt.collection, tt.q)
			require.NoError(t, err)

			require.Len(t, got, len(want))
			for i := range want {
				assert.JSONEq(t, string(want[i]), string(got[i]))
			}
		})
	}
}

func TestPostgresStore_QueryService(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := store.NewPostgresStore(ctx, startPostgres(ctx, t), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })

	require.NoError(t, pg.Create(ctx, domain.CollectionScore, domain.ScoreRecord{CountryCode: "NLD", City: "Utrecht", Score: 66.4}))
	require.NoError(t, pg.Create(ctx, domain.CollectionNormalizedMetric, domain.NormalizedMetricRecord{
		CountryCode: "NLD", City: "Utrecht", Normalized: map[string]float64{"crime_index": 75},
	}))

	cities, err := query.NewService(pg).CountryCities(ctx, "NLD")
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, 75.0, cities[0].Normalized["crime_index"])

	raw, err := json.Marshal(cities[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"score":66.4`)
}
