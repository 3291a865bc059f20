package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonwraymond/rehabdir/cache"
	"github.com/jonwraymond/rehabdir/kv"
)

type brokenPort struct{ kv.Store }

var errQuota = errors.New("quota exceeded")

func (brokenPort) Get(context.Context, string) (string, bool, error) { return "", false, errQuota }
func (brokenPort) Set(context.Context, string, string) error         { return errQuota }
func (brokenPort) Remove(context.Context, string) error              { return errQuota }
func (brokenPort) RemoveMany(context.Context, []string) error        { return errQuota }

// lossyPort accepts writes and forgets them.
type lossyPort struct{ brokenPort }

func (lossyPort) Set(context.Context, string, string) error          { return nil }
func (lossyPort) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func TestPortChecker(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy", func(t *testing.T) {
		store := kv.NewMemory()
		checker := NewPortChecker(store)
		if checker.Name() != "port" {
			t.Errorf("Name() = %v", checker.Name())
		}
		if result := checker.Check(ctx); result.Status != StatusHealthy {
			t.Fatalf("Status = %v (%s)", result.Status, result.Message)
		}
		if _, ok, _ := store.Get(ctx, ProbeKey); ok {
			t.Error("probe key left behind")
		}
	})

	t.Run("write fails", func(t *testing.T) {
		result := NewPortChecker(brokenPort{}).Check(ctx)
		if result.Status != StatusUnhealthy || !errors.Is(result.Error, errQuota) {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("value lost", func(t *testing.T) {
		result := NewPortChecker(lossyPort{}).Check(ctx)
		if result.Status != StatusUnhealthy || !errors.Is(result.Error, ErrProbeMismatch) {
			t.Errorf("result = %+v", result)
		}
	})
}

func TestAPIChecker(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		code int
		want Status
	}{
		{"ok", http.StatusOK, StatusHealthy},
		{"unauthorized still reachable", http.StatusUnauthorized, StatusHealthy},
		{"server error", http.StatusBadGateway, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			result := NewAPIChecker(APICheckerConfig{URL: srv.URL, Client: srv.Client()}).Check(ctx)
			if result.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", result.Status, tt.want, result.Message)
			}
			if result.Details["status_code"] != tt.code {
				t.Errorf("status_code = %v, want %d", result.Details["status_code"], tt.code)
			}
		})
	}

	t.Run("slow", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(30 * time.Millisecond)
		}))
		defer srv.Close()

		checker := NewAPIChecker(APICheckerConfig{URL: srv.URL, SlowThreshold: 5 * time.Millisecond})
		if result := checker.Check(ctx); result.Status != StatusDegraded {
			t.Errorf("Status = %v, want degraded", result.Status)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		if result := NewAPIChecker(APICheckerConfig{URL: url}).Check(ctx); result.Status != StatusUnhealthy {
			t.Errorf("Status = %v, want unhealthy", result.Status)
		}
	})
}

func TestCacheChecker(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy with details", func(t *testing.T) {
		store := cache.NewStore(cache.Config{MaxSize: 4, Tier: cache.TierMemory})
		_ = store.Set(ctx, "centers", []byte(`[]`), time.Minute)
		store.Get(ctx, "centers")
		store.Get(ctx, "articles")

		result := NewCacheChecker(store, CacheCheckerConfig{}).Check(ctx)
		if result.Status != StatusHealthy {
			t.Fatalf("Status = %v (%s)", result.Status, result.Message)
		}
		if result.Details["entries"] != 1 || result.Details["hit_ratio"] != 0.5 {
			t.Errorf("Details = %v", result.Details)
		}
		if result.Details["tier"] != "memory" {
			t.Errorf("tier = %v", result.Details["tier"])
		}
	})

	t.Run("degraded while port fails", func(t *testing.T) {
		store := cache.NewStore(cache.Config{Tier: cache.TierHybrid}, cache.WithPort(brokenPort{}))
		checker := NewCacheChecker(store, CacheCheckerConfig{})

		_ = store.Set(ctx, "centers", []byte(`[]`), time.Minute)
		if result := checker.Check(ctx); result.Status != StatusDegraded {
			t.Fatalf("Status = %v, want degraded", result.Status)
		}
		// No new failures since the previous check.
		if result := checker.Check(ctx); result.Status != StatusHealthy {
			t.Errorf("Status = %v, want healthy", result.Status)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		store := cache.NewStore(cache.Config{})
		if result := NewCacheChecker(store, CacheCheckerConfig{}).Check(cctx); result.Status != StatusUnhealthy {
			t.Errorf("Status = %v, want unhealthy", result.Status)
		}
	})
}
