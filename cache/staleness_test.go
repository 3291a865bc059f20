package cache

import (
	"testing"
	"time"
)

func TestIsStale(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		age   time.Duration
		limit time.Duration
		want  bool
	}{
		{"fresh", time.Minute, 5 * time.Minute, false},
		{"at threshold", 5 * time.Minute, 5 * time.Minute, false},
		{"past threshold", 5*time.Minute + time.Millisecond, 5 * time.Minute, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsStale(now.Add(-tc.age), tc.limit, now); got != tc.want {
				t.Errorf("IsStale() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestStalenessPolicy(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-time.Hour)

	if (StalenessPolicy{}).Stale(old, now) {
		t.Error("zero policy marked an entry stale")
	}
	if (StalenessPolicy{}).Enabled() {
		t.Error("zero policy reports enabled")
	}
	p := StalenessPolicy{Threshold: time.Minute}
	if !p.Stale(old, now) {
		t.Error("Stale() = false for an hour-old entry")
	}
	if p.Stale(now.Add(-30*time.Second), now) {
		t.Error("Stale() = true for a 30s-old entry")
	}
}
