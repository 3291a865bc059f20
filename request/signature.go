package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Options describes one call.
type Options struct {
	// Method is the HTTP method.
	// Default: GET
	Method string

	// Query is appended to the endpoint.
	Query url.Values

	// Headers are sent with every attempt.
	Headers map[string]string

	// Body is sent as JSON. []byte and json.RawMessage are sent verbatim.
	Body any
}

func (o Options) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(o.Method)
}

// Signature identifies a logical request for deduplication.
//
// Two calls share a signature when method, endpoint, query, headers and
// body match. Query values and headers are sorted, so map order never
// matters. Bodies are compared in serialized form: two payloads that
// differ only in whitespace or field order produce different signatures.
func Signature(endpoint string, opts Options) (string, error) {
	body, err := encodeBody(opts.Body)
	if err != nil {
		return "", err
	}
	return signature(endpoint, opts, body), nil
}

func signature(endpoint string, opts Options, body []byte) string {
	var b strings.Builder
	b.WriteString(opts.method())
	b.WriteByte(' ')
	b.WriteString(endpoint)
	if len(opts.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(opts.Query.Encode())
	}

	names := make([]string, 0, len(opts.Headers))
	for name := range opts.Headers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return http.CanonicalHeaderKey(names[i]) < http.CanonicalHeaderKey(names[j])
	})
	for _, name := range names {
		fmt.Fprintf(&b, "\n%s: %s", http.CanonicalHeaderKey(name), opts.Headers[name])
	}

	if len(body) > 0 {
		b.WriteString("\n\n")
		b.Write(body)
	}
	return b.String()
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeBody, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
