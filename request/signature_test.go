package request

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature_OrderIndependent(t *testing.T) {
	a, err := Signature("/centers", Options{
		Query:   url.Values{"city": {"Oslo"}, "page": {"2"}},
		Headers: map[string]string{"X-B": "2", "x-a": "1"},
	})
	require.NoError(t, err)
	b, err := Signature("/centers", Options{
		Method:  "get",
		Query:   url.Values{"page": {"2"}, "city": {"Oslo"}},
		Headers: map[string]string{"X-A": "1", "X-B": "2"},
	})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSignature_Distinguishes(t *testing.T) {
	base := Options{Method: "POST", Body: map[string]string{"name": "a"}}
	sig := func(endpoint string, o Options) string {
		s, err := Signature(endpoint, o)
		require.NoError(t, err)
		return s
	}

	ref := sig("/centers", base)
	assert.NotEqual(t, ref, sig("/articles", base))
	assert.NotEqual(t, ref, sig("/centers", Options{Method: "PUT", Body: base.Body}))
	assert.NotEqual(t, ref, sig("/centers", Options{Method: "POST", Body: map[string]string{"name": "b"}}))
	assert.NotEqual(t, ref, sig("/centers", Options{Method: "POST", Body: base.Body, Headers: map[string]string{"Authorization": "Bearer x"}}))
}

func TestSignature_BodyComparedSerialized(t *testing.T) {
	a, _ := Signature("/centers", Options{Method: "POST", Body: json.RawMessage(`{"a":1,"b":2}`)})
	b, _ := Signature("/centers", Options{Method: "POST", Body: json.RawMessage(`{"b":2,"a":1}`)})
	c, _ := Signature("/centers", Options{Method: "POST", Body: map[string]int{"b": 2, "a": 1}})

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c, "maps encode with sorted keys")
}

func TestSignature_EncodeError(t *testing.T) {
	_, err := Signature("/centers", Options{Body: func() {}})
	assert.ErrorIs(t, err, ErrEncodeBody)
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://api.test/v1/centers", joinURL("http://api.test/v1/", "/centers"))
	assert.Equal(t, "http://api.test/v1/centers", joinURL("http://api.test/v1", "centers"))
	assert.Equal(t, "/centers", joinURL("", "/centers"))
}
