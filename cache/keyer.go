package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Key derives the cache key for a resource query.
// Format: <resource>_<canonical JSON of filters>
//
// Map keys are sorted at every level, so two filter sets with the same
// content always yield the same key regardless of insertion order. Nil or
// empty filters serialize as {}.
func Key(resource string, filters any) (string, error) {
	canonical, err := canonicalize(filters)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize filters: %w", err)
	}
	if string(canonical) == "null" {
		canonical = []byte("{}")
	}
	return resource + "_" + string(canonical), nil
}

// IDKey derives the cache key for a single record, e.g. center_42.
func IDKey(singular, id string) string {
	return singular + "_" + id
}

// canonicalize produces a deterministic JSON representation of v.
// Arbitrary values are first reduced to maps, slices and scalars through a
// JSON round trip; numbers keep their literal form.
func canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return canonicalizeValue(generic)
}

func canonicalizeValue(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			return []byte("{}"), nil
		}
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalizeValue(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalizeValue(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}
