//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkaadapter "github.com/couchcryptid/city-livability-etl/internal/adapter/kafka"
	"github.com/couchcryptid/city-livability-etl/internal/adapter/source"
	"github.com/couchcryptid/city-livability-etl/internal/adapter/store"
	"github.com/couchcryptid/city-livability-etl/internal/config"
	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/city-livability-etl/internal/observability"
	"github.com/couchcryptid/city-livability-etl/internal/pipeline"
	"github.com/couchcryptid/city-livability-etl/internal/query"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-city-livability"

// mirroredMessage holds a message read back from the mirror topic.
type mirroredMessage struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

func readMirrored(ctx context.Context, t *testing.T, consumer *kafkago.Reader) mirroredMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from mirror topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return mirroredMessage{Key: string(msg.Key), Value: msg.Value, Headers: headers}
}

// TestPipelineEndToEnd runs the sample data through a PostgreSQL store
// mirrored to Kafka, then reads results back through the query service and
// the topic.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)
	dsn := startPostgres(ctx, t)

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	pg, err := store.NewPostgresStore(ctx, dsn, logger)
	require.NoError(t, err)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaTopic:       testTopic,
		KafkaCollections: []string{domain.CollectionScore, domain.CollectionRunLog},
	}
	docs := store.NewTeeStore(pg, logger, metrics, kafkaadapter.NewWriter(cfg, logger))
	t.Cleanup(func() { _ = docs.Close() })

	registry := source.NewDefaultRegistry(source.Options{}, metrics, logger)
	p := pipeline.New(registry, docs, domain.DefaultCatalog(), logger, metrics)
	require.NoError(t, p.SeedCountries(ctx))

	runID, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateSucceeded, p.State())

	// Query side.
	svc := query.NewService(docs)
	countries, err := svc.Countries(ctx)
	require.NoError(t, err)
	assert.Len(t, countries, len(source.Countries()))

	top, err := svc.TopCities(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 5)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Score, top[i].Score)
	}

	usa, err := svc.CountryCities(ctx, "USA")
	require.NoError(t, err)
	require.NotEmpty(t, usa)
	assert.Equal(t, "New York", usa[0].City)
	assert.InDelta(t, 61.23, usa[0].Score, 1e-9)
	assert.Len(t, usa[0].Normalized, 6)

	logs, err := svc.RunLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, runID, logs[0].RunID)

	// Mirror side: start entry, one score per city, finish entry.
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	all, err := svc.TopCities(ctx, 1000)
	require.NoError(t, err)

	first := readMirrored(ctx, t, consumer)
	assert.Equal(t, runID, first.Key)
	assert.Equal(t, domain.CollectionRunLog, first.Headers["collection"])
	assert.NotEmpty(t, first.Headers["published_at"])

	for range all {
		msg := readMirrored(ctx, t, consumer)
		require.Equal(t, domain.CollectionScore, msg.Headers["collection"])
		var rec domain.ScoreRecord
		require.NoError(t, json.Unmarshal(msg.Value, &rec))
		assert.Equal(t, rec.CountryCode+"/"+rec.City, msg.Key)
	}

	last := readMirrored(ctx, t, consumer)
	assert.Equal(t, runID, last.Key)
	var finish domain.RunLogEntry
	require.NoError(t, json.Unmarshal(last.Value, &finish))
	assert.Equal(t, domain.StageFinish, finish.Stage)
	assert.Equal(t, domain.StatusSuccess, finish.Status)
}
