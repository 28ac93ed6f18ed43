package supabase

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// ============================================================
// Encoding / decoding helpers
// ============================================================

func encodeBody(data any) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return b, nil
}

// decodeRows unmarshals a PostgREST array response. A nil or empty body
// yields an empty slice, not an error.
func decodeRows[T any](body []byte, table string) ([]T, error) {
	if body == nil || string(body) == "[]" {
		return []T{}, nil
	}
	var rows []T
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", table, err)
	}
	return rows, nil
}

// decodeFirst returns the first row of a PostgREST array response, or
// nil when the response is empty. Not-found is not an error here;
// callers decide whether absence matters.
func decodeFirst[T any](body []byte, table string) (*T, error) {
	rows, err := decodeRows[T](body, table)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// q escapes a value for use inside a PostgREST filter predicate.
func q(v string) string {
	return url.QueryEscape(v)
}
