package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/city-livability-etl/internal/observability"
)

// Store is the read/write surface shared by every document store.
type Store interface {
	Create(ctx context.Context, collection string, doc any) error
	Find(ctx context.Context, collection string, q domain.DocumentQuery) ([]json.RawMessage, error)
	Ping(ctx context.Context) error
	Close() error
}

// Mirror receives copies of documents written to the primary store.
type Mirror interface {
	Create(ctx context.Context, collection string, doc any) error
}

// TeeStore writes to a primary store and then to every mirror. Only the
// primary decides the outcome of a write; mirror failures are logged and
// counted.
type TeeStore struct {
	primary Store
	mirrors []Mirror
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTeeStore wraps primary with the given mirrors.
func NewTeeStore(primary Store, logger *slog.Logger, metrics *observability.Metrics, mirrors ...Mirror) *TeeStore {
	return &TeeStore{primary: primary, mirrors: mirrors, logger: logger, metrics: metrics}
}

func (t *TeeStore) Create(ctx context.Context, collection string, doc any) error {
	if err := t.primary.Create(ctx, collection, doc); err != nil {
		return err
	}
	for _, m := range t.mirrors {
		if err := m.Create(ctx, collection, doc); err != nil {
			t.logger.Warn("mirror write failed", "collection", collection, "error", err)
			t.metrics.MirrorErrors.Inc()
		}
	}
	return nil
}

func (t *TeeStore) Find(ctx context.Context, collection string, q domain.DocumentQuery) ([]json.RawMessage, error) {
	return t.primary.Find(ctx, collection, q)
}

func (t *TeeStore) Ping(ctx context.Context) error {
	return t.primary.Ping(ctx)
}

// Close closes the mirrors that hold resources, then the primary.
func (t *TeeStore) Close() error {
	var errs []error
	for _, m := range t.mirrors {
		if c, ok := m.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	errs = append(errs, t.primary.Close())
	return errors.Join(errs...)
}
