package health

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonwraymond/rehabdir/kv"
)

// ProbeKey is the key the port checker writes and removes.
const ProbeKey = "__health_probe__"

// PortChecker probes a persistence port with a write, read and remove
// round trip.
type PortChecker struct {
	store kv.Store
	key   string
}

// NewPortChecker creates a port health checker.
func NewPortChecker(store kv.Store) *PortChecker {
	return &PortChecker{store: store, key: ProbeKey}
}

// Name returns the name of this checker.
func (p *PortChecker) Name() string {
	return "port"
}

// Check performs the probe. A port that cannot be written is Unhealthy.
func (p *PortChecker) Check(ctx context.Context) Result {
	value := strconv.FormatInt(time.Now().UnixNano(), 10)

	if err := p.store.Set(ctx, p.key, value); err != nil {
		return Unhealthy("port write failed", err)
	}
	defer func() {
		_ = p.store.Remove(context.WithoutCancel(ctx), p.key)
	}()

	got, ok, err := p.store.Get(ctx, p.key)
	if err != nil {
		return Unhealthy("port read failed", err)
	}
	if !ok || got != value {
		return Unhealthy(fmt.Sprintf("port returned %q", got), ErrProbeMismatch)
	}
	return Healthy("port read/write ok")
}
