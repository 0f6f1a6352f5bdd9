package detector

import (
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/model"
)

// Detector tracks failed-login timestamps per source IP over a sliding
// window. Threshold and window are fixed for the lifetime of an instance.
// Keys are never deleted, only cleared on trip; the map grows with distinct
// source IPs.
type Detector struct {
	threshold int
	window    time.Duration

	mu       sync.Mutex
	failures map[string][]time.Time
}

func New(threshold int, window time.Duration) *Detector {
	if threshold < 2 {
		threshold = 5
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	return &Detector{
		threshold: threshold,
		window:    window,
		failures:  make(map[string][]time.Time),
	}
}

// RecordFailure classifies one failed login and updates the sliding window
// for its source IP. It always returns an AUTH_FAILED event; when the
// pruned window reaches the threshold it also returns a BRUTE_FORCE event
// and clears the IP's counter.
func (d *Detector) RecordFailure(ip string, now time.Time) (model.SecurityEvent, *model.SecurityEvent) {
	now = now.UTC()
	external := IsExternal(ip)

	d.mu.Lock()
	defer d.mu.Unlock()

	attempt := len(d.failures[ip]) + 1
	detail := fmt.Sprintf("Failed login attempt #%d", attempt)
	severity := model.SeverityMedium
	if external {
		severity = model.SeverityHigh
		detail += " (external IP)"
	}
	authEvent := model.SecurityEvent{
		ID:        uuid.NewString(),
		EventType: model.EventAuthFailed,
		SourceIP:  ip,
		Severity:  severity,
		Detail:    detail,
		Timestamp: now,
	}

	kept := d.failures[ip][:0]
	for _, ts := range d.failures[ip] {
		if now.Sub(ts) <= d.window {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	d.failures[ip] = kept

	if len(kept) < d.threshold {
		return authEvent, nil
	}

	bfEvent := &model.SecurityEvent{
		ID:        uuid.NewString(),
		EventType: model.EventBruteForce,
		SourceIP:  ip,
		Severity:  model.SeverityCritical,
		Detail: fmt.Sprintf("Brute-force detected: %d attempts in %ds",
			len(kept), int(d.window.Seconds())),
		Timestamp: now,
	}
	d.failures[ip] = d.failures[ip][:0]
	return authEvent, bfEvent
}

// Reset drops all tracked windows.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = make(map[string][]time.Time)
}

// PendingFailures returns the current window size for an IP.
func (d *Detector) PendingFailures(ip string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.failures[ip])
}

// IsExternal reports whether ip parses as a publicly routable address.
// Unparseable input is treated as non-external.
func IsExternal(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() {
		return false
	}
	return true
}
