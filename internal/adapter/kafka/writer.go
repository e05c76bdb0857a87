package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/config"
	"github.com/couchcryptid/city-livability-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes persisted documents of selected collections to a Kafka
// topic. It implements store.Mirror.
type Writer struct {
	writer      messageWriter
	collections map[string]bool
	logger      *slog.Logger
}

// NewWriter creates a Kafka producer for the configured mirror topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newWriter(w, cfg.KafkaCollections, logger)
}

func newWriter(w messageWriter, collections []string, logger *slog.Logger) *Writer {
	set := make(map[string]bool, len(collections))
	for _, c := range collections {
		set[c] = true
	}
	return &Writer{writer: w, collections: set, logger: logger}
}

// Create publishes doc when its collection is mirrored and ignores it
// otherwise.
func (w *Writer) Create(ctx context.Context, collection string, doc any) error {
	if !w.collections[collection] {
		return nil
	}
	msg, err := serializeToMessage(collection, doc, domain.Now())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s document: %w", collection, err)
	}
	w.logger.Debug("document mirrored", "collection", collection, "key", string(msg.Key))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// documentKey holds the fields that identify a document across collections.
type documentKey struct {
	CountryCode string `json:"country_code"`
	City        string `json:"city"`
	RunID       string `json:"run_id"`
	Code        string `json:"code"`
}

// serializeToMessage marshals a document into a Kafka message keyed by
// country_code/city for city records, run_id for run log entries, and code
// for countries.
func serializeToMessage(collection string, doc any, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s document: %w", collection, err)
	}
	var k documentKey
	if err := json.Unmarshal(data, &k); err != nil {
		return kafkago.Message{}, fmt.Errorf("read %s document key: %w", collection, err)
	}

	var key string
	switch {
	case k.City != "":
		key = k.CountryCode + "/" + k.City
	case k.RunID != "":
		key = k.RunID
	default:
		key = k.Code
	}

	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "collection", Value: []byte(collection)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
