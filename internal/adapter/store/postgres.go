package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	_ "github.com/lib/pq"
)

const (
	pingAttempts   = 10
	pingBackoff    = 500 * time.Millisecond
	pingMaxBackoff = 5 * time.Second
)

// PostgresStore persists documents as JSONB rows in a single table keyed by
// collection name.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore opens a connection, waits for the database to accept
// connections, and runs the schema migration.
func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	backoff := pingBackoff
	for i := 0; i < pingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Warn("postgres not ready", "attempt", i+1, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			_ = db.Close()
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, pingMaxBackoff)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := &PostgresStore{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id         BIGSERIAL   PRIMARY KEY,
			collection TEXT        NOT NULL,
			body       JSONB       NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, id);
	`)
	return err
}

// Create inserts doc into the collection.
func (s *PostgresStore) Create(ctx context.Context, collection string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", collection, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, body) VALUES ($1, $2::jsonb)`,
		collection, string(data))
	if err != nil {
		return fmt.Errorf("postgres: insert %s: %w", collection, err)
	}
	return nil
}

// Find returns the collection's documents selected by q.
func (s *PostgresStore) Find(ctx context.Context, collection string, q domain.DocumentQuery) ([]json.RawMessage, error) {
	query, args := buildFindQuery(collection, q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: find %s: %w", collection, err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", collection, err)
		}
		out = append(out, json.RawMessage(body))
	}
	return out, rows.Err()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// buildFindQuery renders q as a parameterized SELECT. Values that cannot be
// cast for the requested sort kind become NULL and sort last.
func buildFindQuery(collection string, q domain.DocumentQuery) (string, []any) {
	var b strings.Builder
	args := []any{collection}
	b.WriteString("SELECT body FROM documents WHERE collection = $1")

	keys := make([]string, 0, len(q.Filter))
	for k := range q.Filter {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		args = append(args, k, q.Filter[k])
		fmt.Fprintf(&b, " AND body->>$%d::text = $%d", len(args)-1, len(args))
	}

	b.WriteString(" ORDER BY ")
	if q.SortField != "" {
		args = append(args, q.SortField)
		n := len(args)
		switch q.SortKind {
		case domain.SortNumber:
			fmt.Fprintf(&b, "CASE WHEN jsonb_typeof(body->$%d::text) = 'number' THEN (body->>$%[1]d::text)::double precision END", n)
		case domain.SortTime:
			fmt.Fprintf(&b, "CASE WHEN jsonb_typeof(body->$%d::text) = 'string' THEN (body->>$%[1]d::text)::timestamptz END", n)
		default:
			fmt.Fprintf(&b, "CASE WHEN jsonb_typeof(body->$%d::text) = 'string' THEN body->>$%[1]d::text END", n)
		}
		if q.Desc {
			b.WriteString(" DESC")
		}
		b.WriteString(" NULLS LAST, ")
	}
	b.WriteString("id")

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args
}
