package store

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/city-livability-etl/internal/domain"
)

// candidate is a decoded document kept alongside its original bytes.
type candidate struct {
	raw    json.RawMessage
	fields map[string]any
}

// sortKey is a comparable view of a document's sort field. ok is false when
// the field is absent or has the wrong type for the requested kind.
type sortKey struct {
	ok   bool
	num  float64
	text string
	ts   time.Time
}

func decodeCandidates(docs []json.RawMessage) ([]candidate, error) {
	out := make([]candidate, 0, len(docs))
	for _, raw := range docs {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, candidate{raw: raw, fields: fields})
	}
	return out, nil
}

// matches reports whether every filter entry equals a top-level string field.
func matches(fields map[string]any, filter map[string]string) bool {
	for k, want := range filter {
		got, ok := fields[k].(string)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func keyOf(fields map[string]any, field string, kind domain.SortKind) sortKey {
	v, present := fields[field]
	if !present {
		return sortKey{}
	}
	switch kind {
	case domain.SortNumber:
		if f, ok := v.(float64); ok {
			return sortKey{ok: true, num: f}
		}
	case domain.SortTime:
		if s, ok := v.(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return sortKey{ok: true, ts: ts}
			}
		}
	default:
		if s, ok := v.(string); ok {
			return sortKey{ok: true, text: s}
		}
	}
	return sortKey{}
}

func compareKeys(a, b sortKey, kind domain.SortKind) int {
	switch kind {
	case domain.SortNumber:
		return cmp.Compare(a.num, b.num)
	case domain.SortTime:
		return a.ts.Compare(b.ts)
	default:
		return cmp.Compare(a.text, b.text)
	}
}

// apply filters, orders, and limits documents held in insertion order.
// Ties keep insertion order and documents without a usable sort value go
// last in both directions.
func apply(docs []json.RawMessage, q domain.DocumentQuery) ([]json.RawMessage, error) {
	all, err := decodeCandidates(docs)
	if err != nil {
		return nil, err
	}

	type keyed struct {
		candidate
		key sortKey
	}
	selected := make([]keyed, 0, len(all))
	for _, c := range all {
		if !matches(c.fields, q.Filter) {
			continue
		}
		k := keyed{candidate: c}
		if q.SortField != "" {
			k.key = keyOf(c.fields, q.SortField, q.SortKind)
		}
		selected = append(selected, k)
	}

	if q.SortField != "" {
		slices.SortStableFunc(selected, func(a, b keyed) int {
			switch {
			case !a.key.ok && !b.key.ok:
				return 0
			case !a.key.ok:
				return 1
			case !b.key.ok:
				return -1
			}
			c := compareKeys(a.key, b.key, q.SortKind)
			if q.Desc {
				return -c
			}
			return c
		})
	}

	if q.Limit > 0 && len(selected) > q.Limit {
		selected = selected[:q.Limit]
	}

	out := make([]json.RawMessage, len(selected))
	for i, k := range selected {
		out[i] = slices.Clone(k.raw)
	}
	return out, nil
}
