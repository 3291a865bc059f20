package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jonwraymond/rehabdir/directory"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parsePairs parses key=value arguments. Values that are valid JSON
// (numbers, booleans, arrays, objects, quoted strings) keep their type;
// anything else is a string.
func parsePairs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}

// payload builds a request body from --data and --set flags. --set fields
// are applied over --data.
func payload(data string, set []string) (map[string]any, error) {
	body := map[string]any{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), &body); err != nil {
			return nil, fmt.Errorf("invalid --data: %w", err)
		}
	}
	fields, err := parsePairs(set)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		body[k] = v
	}
	return body, nil
}

func filters(pairs []string) (directory.Filters, error) {
	m, err := parsePairs(pairs)
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return directory.Filters(m), nil
}
