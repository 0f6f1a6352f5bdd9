package monitor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/detector"
	"sentinel/internal/model"
)

// Monitor classifies raw platform signals into security events and hands
// them to the processing pipeline through a bounded channel. Classification
// is synchronous and never blocks on enrichment, dispatch or storage; a
// full queue drops the event with a warning instead of stalling the bus
// listener.
type Monitor struct {
	detector  *detector.Detector
	sensitive *CapabilitySet
	out       chan<- model.SecurityEvent
	logger    *slog.Logger

	mu           sync.Mutex
	knownDevices map[string]struct{}
}

func New(det *detector.Detector, sensitive *CapabilitySet, out chan<- model.SecurityEvent, logger *slog.Logger) *Monitor {
	return &Monitor{
		detector:     det,
		sensitive:    sensitive,
		out:          out,
		logger:       logger,
		knownDevices: make(map[string]struct{}),
	}
}

// maxSignalSkew bounds how far a shipper-supplied timestamp may deviate
// from the wall clock before it is ignored. A backdated or future-dated
// signal would otherwise skew the sliding-window pruning for its IP.
const maxSignalSkew = 5 * time.Minute

func (m *Monitor) HandleAuthFailure(sig model.AuthFailureSignal) {
	if sig.RemoteAddr == "" {
		return
	}
	now := clampSignalTime(sig.Timestamp, time.Now().UTC())
	authEvent, bfEvent := m.detector.RecordFailure(sig.RemoteAddr, now)
	m.emit(authEvent)
	if bfEvent != nil {
		m.emit(*bfEvent)
	}
}

func (m *Monitor) HandleServiceCall(sig model.ServiceCallSignal) {
	if !m.sensitive.Matches(sig.Domain, sig.Service) {
		return
	}
	principal := sig.UserID
	if principal == "" {
		principal = "unknown"
	}
	m.emit(model.SecurityEvent{
		ID:        uuid.NewString(),
		EventType: model.EventSuspiciousService,
		SourceIP:  model.SourceInternal,
		Severity:  model.SeverityHigh,
		Detail:    fmt.Sprintf("Sensitive service called: %s.%s by user_id=%s", sig.Domain, sig.Service, principal),
		Timestamp: time.Now().UTC(),
	})
}

// HandleDeviceRegistry announces devices the monitor has not seen during
// this process lifetime. The seen set is not persisted, so a restart
// re-announces every device once.
func (m *Monitor) HandleDeviceRegistry(sig model.DeviceRegistrySignal) {
	if sig.Action != model.DeviceActionCreate || sig.DeviceID == "" {
		return
	}
	m.mu.Lock()
	_, seen := m.knownDevices[sig.DeviceID]
	if !seen {
		m.knownDevices[sig.DeviceID] = struct{}{}
	}
	m.mu.Unlock()
	if seen {
		return
	}
	m.emit(model.SecurityEvent{
		ID:        uuid.NewString(),
		EventType: model.EventNewDevice,
		SourceIP:  model.SourceNone,
		Severity:  model.SeverityLow,
		Detail:    "New device registered: " + sig.DeviceID,
		Timestamp: time.Now().UTC(),
	})
}

func clampSignalTime(ts, wall time.Time) time.Time {
	if ts.IsZero() {
		return wall
	}
	if ts.Before(wall.Add(-maxSignalSkew)) || ts.After(wall.Add(maxSignalSkew)) {
		return wall
	}
	return ts.UTC()
}

// Reset clears the brute-force windows and the seen-device set.
func (m *Monitor) Reset() {
	m.detector.Reset()
	m.mu.Lock()
	m.knownDevices = make(map[string]struct{})
	m.mu.Unlock()
}

func (m *Monitor) emit(event model.SecurityEvent) {
	select {
	case m.out <- event:
	default:
		if m.logger != nil {
			m.logger.Warn("event queue full, dropping event",
				"event_type", event.EventType, "ip", event.SourceIP)
		}
	}
}
