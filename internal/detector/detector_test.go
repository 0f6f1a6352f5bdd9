package detector

import (
	"strings"
	"testing"
	"time"

	"sentinel/internal/model"
)

func TestBruteForceTripsAtThreshold(t *testing.T) {
	d := New(5, 60*time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var trips int
	for i := 0; i < 5; i++ {
		now := base.Add(time.Duration(i*10) * time.Second)
		auth, bf := d.RecordFailure("203.0.113.7", now)
		if auth.EventType != model.EventAuthFailed {
			t.Fatalf("event type: %s", auth.EventType)
		}
		if auth.Severity != model.SeverityHigh {
			t.Fatalf("external failure severity: %s", auth.Severity)
		}
		if i < 4 && bf != nil {
			t.Fatalf("tripped early at attempt %d", i+1)
		}
		if bf != nil {
			trips++
			if bf.EventType != model.EventBruteForce {
				t.Fatalf("bf event type: %s", bf.EventType)
			}
			if bf.Severity != model.SeverityCritical {
				t.Fatalf("bf severity: %s", bf.Severity)
			}
			if bf.Detail != "Brute-force detected: 5 attempts in 60s" {
				t.Fatalf("bf detail: %s", bf.Detail)
			}
		}
	}
	if trips != 1 {
		t.Fatalf("expected exactly one trip, got %d", trips)
	}
	if n := d.PendingFailures("203.0.113.7"); n != 0 {
		t.Fatalf("counter not cleared after trip: %d", n)
	}
}

func TestNoTripWhenSpacedBeyondWindow(t *testing.T) {
	d := New(5, 60*time.Second)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		now := base.Add(time.Duration(i*61) * time.Second)
		if _, bf := d.RecordFailure("203.0.113.7", now); bf != nil {
			t.Fatalf("tripped at attempt %d despite spacing beyond window", i+1)
		}
	}
	if n := d.PendingFailures("203.0.113.7"); n != 1 {
		t.Fatalf("pruned window size: %d", n)
	}
}

func TestAttemptNumberAndSeverity(t *testing.T) {
	d := New(5, 60*time.Second)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	auth, _ := d.RecordFailure("8.8.8.8", now)
	if auth.Severity != model.SeverityHigh {
		t.Fatalf("external severity: %s", auth.Severity)
	}
	if auth.Detail != "Failed login attempt #1 (external IP)" {
		t.Fatalf("external detail: %s", auth.Detail)
	}

	auth, _ = d.RecordFailure("192.168.1.20", now)
	if auth.Severity != model.SeverityMedium {
		t.Fatalf("internal severity: %s", auth.Severity)
	}
	if strings.Contains(auth.Detail, "external") {
		t.Fatalf("internal detail: %s", auth.Detail)
	}

	auth, _ = d.RecordFailure("8.8.8.8", now.Add(time.Second))
	if auth.Detail != "Failed login attempt #2 (external IP)" {
		t.Fatalf("attempt number: %s", auth.Detail)
	}
}

func TestWindowsAreIndependentPerIP(t *testing.T) {
	d := New(3, 60*time.Second)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	d.RecordFailure("203.0.113.7", now)
	d.RecordFailure("203.0.113.7", now.Add(time.Second))
	if _, bf := d.RecordFailure("198.51.100.9", now.Add(2*time.Second)); bf != nil {
		t.Fatalf("unrelated ip tripped")
	}
	if _, bf := d.RecordFailure("203.0.113.7", now.Add(3*time.Second)); bf == nil {
		t.Fatalf("expected trip on third failure")
	}
}

func TestIsExternal(t *testing.T) {
	external := []string{"8.8.8.8", "203.0.113.7", "2001:4860:4860::8888"}
	for _, ip := range external {
		if !IsExternal(ip) {
			t.Fatalf("%s should be external", ip)
		}
	}
	internal := []string{"10.0.0.5", "192.168.1.1", "172.20.3.4", "127.0.0.1", "fe80::1", "0.0.0.0", "not-an-ip", ""}
	for _, ip := range internal {
		if IsExternal(ip) {
			t.Fatalf("%s should not be external", ip)
		}
	}
}

func TestReset(t *testing.T) {
	d := New(5, 60*time.Second)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.RecordFailure("203.0.113.7", now)
	d.RecordFailure("203.0.113.7", now.Add(time.Second))
	d.Reset()
	if n := d.PendingFailures("203.0.113.7"); n != 0 {
		t.Fatalf("reset left %d pending", n)
	}
}
