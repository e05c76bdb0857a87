// Package store provides append-only document stores for the pipeline's
// collections: an in-memory store, a PostgreSQL JSONB store, and a tee that
// mirrors selected collections to secondary sinks such as Kafka.
//
// Documents are JSON objects. Find filters on top-level string fields,
// orders by one top-level field, and returns raw JSON so callers decode into
// their own record types.
package store
