package ingest

import (
	"context"
	"time"

	"sentinel/internal/model"
)

// Handler classifies raw platform signals into security events. The
// monitor implements it; tests substitute a recorder.
type Handler interface {
	HandleAuthFailure(sig model.AuthFailureSignal)
	HandleServiceCall(sig model.ServiceCallSignal)
	HandleDeviceRegistry(sig model.DeviceRegistrySignal)
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
