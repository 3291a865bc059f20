package health

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fixed(status Status) Checker {
	return NewCheckerFunc(status.String(), func(ctx context.Context) Result {
		return Result{Status: status, Message: status.String()}
	})
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator()
	if agg.config.Timeout != 5*time.Second {
		t.Errorf("Default timeout = %v, want 5s", agg.config.Timeout)
	}

	agg = NewAggregator(AggregatorConfig{Timeout: time.Second, Concurrency: 1})
	if agg.config.Timeout != time.Second || agg.config.Concurrency != 1 {
		t.Errorf("config = %+v", agg.config)
	}
}

func TestAggregator_RegisterKeepsOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register("port", fixed(StatusHealthy))
	agg.Register("api", fixed(StatusHealthy))
	agg.Register("cache", fixed(StatusHealthy))
	agg.Register("port", fixed(StatusDegraded))

	names := agg.CheckerNames()
	want := []string{"port", "api", "cache"}
	if len(names) != len(want) {
		t.Fatalf("CheckerNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("CheckerNames()[%d] = %v, want %v", i, names[i], want[i])
		}
	}

	result, err := agg.Check(context.Background(), "port")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Status != StatusDegraded {
		t.Errorf("re-registered checker not used: %v", result.Status)
	}

	agg.Unregister("api")
	if names := agg.CheckerNames(); len(names) != 2 || names[1] != "cache" {
		t.Errorf("CheckerNames() after Unregister = %v", names)
	}
}

func TestAggregator_CheckNotFound(t *testing.T) {
	agg := NewAggregator()
	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	agg.Register("a", fixed(StatusHealthy))
	agg.Register("b", fixed(StatusDegraded))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("CheckAll() returned %d results", len(results))
	}
	if results["b"].Status != StatusDegraded {
		t.Errorf("results[b] = %v", results["b"].Status)
	}
	if results["a"].Duration < 0 {
		t.Error("Duration should be recorded")
	}
}

func TestAggregator_CheckAllEmpty(t *testing.T) {
	agg := NewAggregator()
	if results := agg.CheckAll(context.Background()); len(results) != 0 {
		t.Errorf("CheckAll() = %v, want empty", results)
	}
	if got := agg.OverallStatus(nil); got != StatusHealthy {
		t.Errorf("OverallStatus(nil) = %v, want healthy", got)
	}
}

func TestAggregator_OverallStatus(t *testing.T) {
	agg := NewAggregator()

	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"all healthy", map[string]Result{"a": Healthy(""), "b": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register("slow", NewCheckerFunc("slow", func(ctx context.Context) Result {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return Healthy("late")
	}))

	result, err := agg.Check(context.Background(), "slow")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Status != StatusUnhealthy || !errors.Is(result.Error, ErrCheckTimeout) {
		t.Errorf("result = %+v, want timeout", result)
	}
}

func TestAggregator_ConcurrencyLimit(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Concurrency: 1})

	var running, peak atomic.Int32
	for _, name := range []string{"a", "b", "c"} {
		agg.Register(name, NewCheckerFunc(name, func(ctx context.Context) Result {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return Healthy("ok")
		}))
	}

	if results := agg.CheckAll(context.Background()); len(results) != 3 {
		t.Fatalf("CheckAll() returned %d results", len(results))
	}
	if peak.Load() != 1 {
		t.Errorf("peak concurrency = %d, want 1", peak.Load())
	}
}

func TestAggregator_Report(t *testing.T) {
	agg := NewAggregator()
	agg.Register("port", fixed(StatusHealthy))
	agg.Register("api", NewCheckerFunc("api", func(ctx context.Context) Result {
		return Unhealthy("api unreachable", errors.New("connection refused"))
	}))

	report := agg.Report(context.Background())
	if report.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", report.Status)
	}
	if report.Healthy() {
		t.Error("Healthy() should be false")
	}
	if len(report.Checks) != 2 || report.Checks[0].Name != "port" || report.Checks[1].Name != "api" {
		t.Fatalf("Checks = %+v", report.Checks)
	}
	if report.Checks[1].Error != "connection refused" {
		t.Errorf("Checks[1].Error = %q", report.Checks[1].Error)
	}

	var buf bytes.Buffer
	if err := report.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var decoded struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if decoded.Status != "unhealthy" || decoded.Checks[0].Status != "healthy" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestAggregator_Checker(t *testing.T) {
	agg := NewAggregator()
	agg.Register("a", fixed(StatusHealthy))
	agg.Register("b", fixed(StatusDegraded))

	checker := agg.Checker()
	if checker.Name() != "aggregate" {
		t.Errorf("Name() = %v", checker.Name())
	}
	result := checker.Check(context.Background())
	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", result.Status)
	}
	if _, ok := result.Details["b"]; !ok {
		t.Error("Details should include each check")
	}
}
