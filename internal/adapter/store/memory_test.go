package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scoreDoc struct {
	CountryCode string   `json:"country_code"`
	City        string   `json:"city"`
	Score       *float64 `json:"score,omitempty"`
}

func ptr(f float64) *float64 { return &f }

func seedScores(t *testing.T, s *MemoryStore) {
	t.Helper()
	docs := []scoreDoc{
		{"USA", "New York", ptr(61.23)},
		{"USA", "Austin", ptr(70.5)},
		{"CAN", "Toronto", ptr(65)},
		{"CAN", "Halifax", nil},
		{"GBR", "London", ptr(70.5)},
	}
	for _, d := range docs {
		require.NoError(t, s.Create(context.Background(), domain.CollectionScore, d))
	}
}

func cities(t *testing.T, raws []json.RawMessage) []string {
	t.Helper()
	out := make([]string, len(raws))
	for i, raw := range raws {
		var d scoreDoc
		require.NoError(t, json.Unmarshal(raw, &d))
		out[i] = d.City
	}
	return out
}

func TestMemoryStore_FindAllInInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	seedScores(t, s)

	got, err := s.Find(context.Background(), domain.CollectionScore, domain.DocumentQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"New York", "Austin", "Toronto", "Halifax", "London"}, cities(t, got))
}

func TestMemoryStore_UnknownCollectionIsEmpty(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.Find(context.Background(), "nothing", domain.DocumentQuery{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_Filter(t *testing.T) {
	s := NewMemoryStore()
	seedScores(t, s)

	got, err := s.Find(context.Background(), domain.CollectionScore, domain.DocumentQuery{
		Filter: map[string]string{"country_code": "CAN"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Toronto", "Halifax"}, cities(t, got))

	got, err = s.Find(context.Background(), domain.CollectionScore, domain.DocumentQuery{
		Filter: map[string]string{"country_code": "USA", "city": "Austin"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Austin"}, cities(t, got))
}

func TestMemoryStore_SortNumber(t *testing.T) {
	tests := []struct {
		name  string
		query domain.DocumentQuery
		want  []string
	}{
		{
			name:  "descending keeps ties in insertion order, missing last",
			query: domain.DocumentQuery{SortField: "score", SortKind: domain.SortNumber, Desc: true},
			want:  []string{"Austin", "London", "Toronto", "New York", "Halifax"},
		},
		{
			name:  "ascending, missing last",
			query: domain.DocumentQuery{SortField: "score", SortKind: domain.SortNumber},
			want:  []string{"New York", "Toronto", "Austin", "London", "Halifax"},
		},
		{
			name:  "limit",
			query: domain.DocumentQuery{SortField: "score", SortKind: domain.SortNumber, Desc: true, Limit: 2},
			want:  []string{"Austin", "London"},
		},
		{
			name:  "text",
			query: domain.DocumentQuery{SortField: "city", SortKind: domain.SortText},
			want:  []string{"Austin", "Halifax", "London", "New York", "Toronto"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			seedScores(t, s)
			got, err := s.Find(context.Background(), domain.CollectionScore, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cities(t, got))
		})
	}
}

func TestMemoryStore_SortTime(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t1, t2 := base, base.Add(time.Hour)

	require.NoError(t, s.Create(context.Background(), domain.CollectionRunLog,
		domain.RunLogEntry{RunID: "a", Stage: domain.StageStart, StartedAt: &t1}))
	require.NoError(t, s.Create(context.Background(), domain.CollectionRunLog,
		domain.RunLogEntry{RunID: "b", Stage: domain.StageStart, StartedAt: &t2}))
	require.NoError(t, s.Create(context.Background(), domain.CollectionRunLog,
		domain.RunLogEntry{RunID: "c", Stage: domain.StageFinish}))

	got, err := s.Find(context.Background(), domain.CollectionRunLog, domain.DocumentQuery{
		SortField: "started_at", SortKind: domain.SortTime, Desc: true,
	})
	require.NoError(t, err)

	var ids []string
	for _, raw := range got {
		var e domain.RunLogEntry
		require.NoError(t, json.Unmarshal(raw, &e))
		ids = append(ids, e.RunID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestMemoryStore_ResultsAreCopies(t *testing.T) {
	s := NewMemoryStore()
	seedScores(t, s)

	got, err := s.Find(context.Background(), domain.CollectionScore, domain.DocumentQuery{Limit: 1})
	require.NoError(t, err)
	got[0][2] = 'X'

	again, err := s.Find(context.Background(), domain.CollectionScore, domain.DocumentQuery{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"New York"}, cities(t, again))
}

func TestMemoryStore_RejectsUnencodable(t *testing.T) {
	s := NewMemoryStore()
	err := s.Create(context.Background(), domain.CollectionScore, map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode score document")
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Create(ctx, domain.CollectionScore, scoreDoc{}), context.Canceled)
	_, err := s.Find(ctx, domain.CollectionScore, domain.DocumentQuery{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Create(context.Background(), domain.CollectionScore, scoreDoc{City: fmt.Sprintf("city-%d", i)})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Find(context.Background(), domain.CollectionScore, domain.DocumentQuery{})
		}()
	}
	wg.Wait()

	assert.Len(t, s.Collections()[domain.CollectionScore], 20)
}
