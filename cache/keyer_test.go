package cache

import (
	"strings"
	"testing"
)

func TestKey_Deterministic(t *testing.T) {
	a, err := Key("centers", map[string]any{"city": "Oslo", "specialty": "sports", "page": 2})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	b, err := Key("centers", map[string]any{"page": 2, "specialty": "sports", "city": "Oslo"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if a != b {
		t.Errorf("Key() not order independent: %q vs %q", a, b)
	}
	want := `centers_{"city":"Oslo","page":2,"specialty":"sports"}`
	if a != want {
		t.Errorf("Key() = %q, want %q", a, want)
	}
}

func TestKey_NestedMapsSorted(t *testing.T) {
	got, err := Key("articles", map[string]any{
		"z": []any{map[string]any{"b": 1, "a": 2}},
		"a": map[string]any{"y": true, "x": nil},
	})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	want := `articles_{"a":{"x":null,"y":true},"z":[{"a":2,"b":1}]}`
	if got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestKey_EmptyFilters(t *testing.T) {
	for _, filters := range []any{nil, map[string]any{}, struct{}{}} {
		got, err := Key("centers", filters)
		if err != nil {
			t.Fatalf("Key(%v) error = %v", filters, err)
		}
		if got != "centers_{}" {
			t.Errorf("Key(%v) = %q, want centers_{}", filters, got)
		}
	}
}

func TestKey_StructFilters(t *testing.T) {
	type filters struct {
		Specialty string `json:"specialty,omitempty"`
		City      string `json:"city,omitempty"`
	}
	got, err := Key("centers", filters{Specialty: "neuro", City: "Bergen"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if got != `centers_{"city":"Bergen","specialty":"neuro"}` {
		t.Errorf("Key() = %q", got)
	}
}

func TestKey_NumbersKeepLiteralForm(t *testing.T) {
	got, err := Key("centers", map[string]any{"lat": 59.9139, "id": 12345678901234})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if !strings.Contains(got, `"id":12345678901234`) || !strings.Contains(got, `"lat":59.9139`) {
		t.Errorf("Key() = %q, numbers were reformatted", got)
	}
}

func TestKey_DistinctFilters(t *testing.T) {
	a, _ := Key("centers", map[string]any{"city": "Oslo"})
	b, _ := Key("centers", map[string]any{"city": "Bergen"})
	c, _ := Key("articles", map[string]any{"city": "Oslo"})
	if a == b || a == c {
		t.Errorf("expected distinct keys, got %q %q %q", a, b, c)
	}
}

func TestKey_UnsupportedValue(t *testing.T) {
	if _, err := Key("centers", map[string]any{"ch": make(chan int)}); err == nil {
		t.Error("Key() error = nil, want error for unencodable filters")
	}
}

func TestIDKey(t *testing.T) {
	if got := IDKey("center", "42"); got != "center_42" {
		t.Errorf("IDKey() = %q, want center_42", got)
	}
}
