package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/city-livability-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMirror struct {
	collections []string
	err         error
	closed      bool
}

func (m *recordingMirror) Create(_ context.Context, collection string, _ any) error {
	m.collections = append(m.collections, collection)
	return m.err
}

func (m *recordingMirror) Close() error {
	m.closed = true
	return nil
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) Create(context.Context, string, any) error {
	return errors.New("disk full")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTeeStore_WritesPrimaryThenMirrors(t *testing.T) {
	primary := NewMemoryStore()
	mirror := &recordingMirror{}
	tee := NewTeeStore(primary, discardLogger(), observability.NewMetricsForTesting(), mirror)

	require.NoError(t, tee.Create(context.Background(), domain.CollectionScore, scoreDoc{City: "Austin"}))

	got, err := tee.Find(context.Background(), domain.CollectionScore, domain.DocumentQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Austin"}, cities(t, got))
	assert.Equal(t, []string{domain.CollectionScore}, mirror.collections)
}

func TestTeeStore_MirrorFailureIsNotFatal(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	mirror := &recordingMirror{err: errors.New("broker down")}
	tee := NewTeeStore(NewMemoryStore(), discardLogger(), metrics, mirror)

	require.NoError(t, tee.Create(context.Background(), domain.CollectionScore, scoreDoc{City: "Austin"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MirrorErrors))
}

func TestTeeStore_PrimaryFailureSkipsMirrors(t *testing.T) {
	mirror := &recordingMirror{}
	tee := NewTeeStore(failingStore{NewMemoryStore()}, discardLogger(), observability.NewMetricsForTesting(), mirror)

	err := tee.Create(context.Background(), domain.CollectionScore, scoreDoc{})
	require.EqualError(t, err, "disk full")
	assert.Empty(t, mirror.collections)
}

func TestTeeStore_CloseClosesMirrors(t *testing.T) {
	mirror := &recordingMirror{}
	tee := NewTeeStore(NewMemoryStore(), discardLogger(), observability.NewMetricsForTesting(), mirror)

	require.NoError(t, tee.Close())
	assert.True(t, mirror.closed)
}
