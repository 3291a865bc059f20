package directory

import (
	"fmt"
	"net/url"
)

// Filters are unordered query constraints, e.g. {"city": "Moscow"}.
// Equal filter sets share a cache key regardless of insertion order.
type Filters map[string]any

// Values encodes the filters as query parameters. Slice values become
// repeated parameters; nil values are skipped.
func (f Filters) Values() url.Values {
	if len(f) == 0 {
		return nil
	}
	q := make(url.Values, len(f))
	for k, v := range f {
		switch val := v.(type) {
		case nil:
		case []string:
			q[k] = append(q[k], val...)
		case []any:
			for _, item := range val {
				q.Add(k, fmt.Sprint(item))
			}
		default:
			q.Set(k, fmt.Sprint(val))
		}
	}
	return q
}
