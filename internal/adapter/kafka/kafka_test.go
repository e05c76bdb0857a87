package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSerializeToMessage_Score(t *testing.T) {
	now := time.Date(2026, 4, 26, 15, 10, 0, 0, time.UTC)
	rec := domain.ScoreRecord{
		CountryCode: "USA",
		City:        "New York",
		Score:       61.23,
		Breakdown:   map[string]float64{"population": 8.46},
	}

	msg, err := serializeToMessage(domain.CollectionScore, rec, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("USA/New York"), msg.Key)
	assert.Contains(t, string(msg.Value), `"score":61.23`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "collection", msg.Headers[0].Key)
	assert.Equal(t, []byte("score"), msg.Headers[0].Value)
	assert.Equal(t, "published_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_Keys(t *testing.T) {
	started := time.Date(2026, 4, 26, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		collection string
		doc        any
		wantKey    string
	}{
		{"run log", domain.CollectionRunLog, domain.RunLogEntry{RunID: "run-1", Stage: domain.StageStart, StartedAt: &started}, "run-1"},
		{"country", domain.CollectionCountry, domain.Country{Code: "NLD", Name: "Netherlands"}, "NLD"},
		{"normalized", domain.CollectionNormalizedMetric, domain.NormalizedMetricRecord{CountryCode: "CAN", City: "Toronto"}, "CAN/Toronto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := serializeToMessage(tt.collection, tt.doc, started)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, string(msg.Key))
		})
	}
}

func TestSerializeToMessage_Unencodable(t *testing.T) {
	_, err := serializeToMessage(domain.CollectionScore, map[string]any{"bad": func() {}}, time.Now())
	require.Error(t, err)
}

func TestWriter_PublishesOnlySelectedCollections(t *testing.T) {
	fw := &fakeWriter{}
	w := newWriter(fw, []string{domain.CollectionScore, domain.CollectionRunLog}, discardLogger())

	require.NoError(t, w.Create(context.Background(), domain.CollectionRawMetric, domain.RawMetricRecord{City: "Austin"}))
	require.NoError(t, w.Create(context.Background(), domain.CollectionScore, domain.ScoreRecord{CountryCode: "USA", City: "Austin"}))
	require.NoError(t, w.Create(context.Background(), domain.CollectionRunLog, domain.RunLogEntry{RunID: "run-7"}))

	require.Len(t, fw.msgs, 2)
	assert.Equal(t, "USA/Austin", string(fw.msgs[0].Key))
	assert.Equal(t, "run-7", string(fw.msgs[1].Key))
}

func TestWriter_PublishError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("leader not available")}
	w := newWriter(fw, []string{domain.CollectionScore}, discardLogger())

	err := w.Create(context.Background(), domain.CollectionScore, domain.ScoreRecord{City: "Austin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish score document")
}

func TestWriter_Close(t *testing.T) {
	fw := &fakeWriter{}
	w := newWriter(fw, nil, discardLogger())
	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}
