package model

import "time"

type EventType string

const (
	EventAuthFailed        EventType = "AUTH_FAILED"
	EventBruteForce        EventType = "BRUTE_FORCE"
	EventNewDevice         EventType = "NEW_DEVICE"
	EventSuspiciousService EventType = "SUSPICIOUS_SERVICE"
	EventExternalAccess    EventType = "EXTERNAL_ACCESS"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities low < medium < high < critical.
func (s Severity) Rank() int {
	switch s {
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Weight is the scoring contribution of one event of this severity.
func (s Severity) Weight() int {
	switch s {
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 5
	case SeverityCritical:
		return 10
	default:
		return 1
	}
}

// Placeholder source values for events without an external address.
const (
	SourceInternal = "internal"
	SourceNone     = "N/A"
)

type GeoInfo struct {
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Region      string  `json:"region,omitempty"`
	City        string  `json:"city,omitempty"`
	Org         string  `json:"org,omitempty"`
	ISP         string  `json:"isp,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
}

// SecurityEvent is the canonical unit of detection output. Severity is
// assigned once by the classification rule for its type and never recomputed.
type SecurityEvent struct {
	ID        string    `json:"id,omitempty"`
	EventType EventType `json:"event_type"`
	SourceIP  string    `json:"ip"`
	Severity  Severity  `json:"severity"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
	Geo       *GeoInfo  `json:"geo,omitempty"`
}

// HasResolvableIP reports whether the event carries an address worth a geo
// lookup, as opposed to one of the placeholder sources.
func (e *SecurityEvent) HasResolvableIP() bool {
	return e.SourceIP != "" && e.SourceIP != SourceInternal && e.SourceIP != SourceNone
}

// Raw platform signals consumed from the host's event bus.

type AuthFailureSignal struct {
	RemoteAddr string    `json:"remote_addr"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

type ServiceCallSignal struct {
	Domain  string `json:"domain"`
	Service string `json:"service"`
	UserID  string `json:"user_id,omitempty"`
}

const DeviceActionCreate = "create"

type DeviceRegistrySignal struct {
	Action   string `json:"action"`
	DeviceID string `json:"device_id"`
}

// Snapshot is the aggregate recomputed after every processed event; it is
// the sole input to all externally published sensor values.
type Snapshot struct {
	FailedLogins int             `json:"failed_logins"`
	LastEvent    *SecurityEvent  `json:"last_event,omitempty"`
	ThreatLevel  Severity        `json:"threat_level"`
	RecentEvents []SecurityEvent `json:"recent_events"`
	TotalEvents  int             `json:"total_events"`
}
