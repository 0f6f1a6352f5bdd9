package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"sentinel/internal/model"
)

func sampleEvent() *model.SecurityEvent {
	return &model.SecurityEvent{
		ID:        "ev-1",
		EventType: model.EventBruteForce,
		SourceIP:  "203.0.113.7",
		Severity:  model.SeverityCritical,
		Detail:    "Brute-force detected: 5 attempts in 60s",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Geo:       &model.GeoInfo{Country: "Germany", City: "Berlin", Org: "Example AG"},
	}
}

func TestNotificationID(t *testing.T) {
	if id := NotificationID(sampleEvent()); id != "ss_BRUTE_FORCE_203.0.113.7" {
		t.Fatalf("id: %s", id)
	}
}

func TestCenterPostReplacesSameSource(t *testing.T) {
	c := NewCenter()
	c.Post(sampleEvent())
	c.Post(sampleEvent())
	list := c.List()
	if len(list) != 1 {
		t.Fatalf("notifications: %d", len(list))
	}
	n := list[0]
	if !strings.Contains(n.Title, "BRUTE_FORCE") || !strings.Contains(n.Title, "CRITICAL") {
		t.Fatalf("title: %s", n.Title)
	}
	if !strings.Contains(n.Message, "`203.0.113.7`") || !strings.Contains(n.Message, "Berlin") {
		t.Fatalf("message: %s", n.Message)
	}
}

func TestCenterDismiss(t *testing.T) {
	c := NewCenter()
	n := c.Post(sampleEvent())
	c.Dismiss(n.ID)
	if len(c.List()) != 0 {
		t.Fatalf("notification survived dismiss")
	}
}

func TestThrottle(t *testing.T) {
	th := NewThrottle()
	if !th.Allow("k", time.Minute) {
		t.Fatalf("first send throttled")
	}
	if th.Allow("k", time.Minute) {
		t.Fatalf("immediate resend allowed")
	}
	if !th.Allow("other", time.Minute) {
		t.Fatalf("independent key throttled")
	}
	if !th.Allow("k", 0) {
		t.Fatalf("zero cooldown throttled")
	}
}

func TestWebhookSend(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var payload struct {
			Message string `json:"message"`
			Title   string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if !strings.Contains(payload.Message, "[CRITICAL] BRUTE_FORCE from 203.0.113.7") {
			t.Errorf("message: %s", payload.Message)
		}
	}))
	defer srv.Close()

	s := NewWebhookSender("notify.mobile_app", srv.URL)
	if err := s.Send(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("send: %v", err)
	}
	// Within the cooldown the second send is silently skipped.
	if err := s.Send(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("throttled send: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("webhook calls: %d", calls.Load())
	}
}

func TestWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSender("notify.mobile_app", srv.URL)
	if err := s.Send(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}

func TestEmailSubjectAndBody(t *testing.T) {
	ev := sampleEvent()
	if got := Subject(ev); got != "[Security Sentinel] CRITICAL: BRUTE_FORCE from 203.0.113.7" {
		t.Fatalf("subject: %s", got)
	}
	html := buildHTML(ev)
	if !strings.Contains(html, "#9C27B0") {
		t.Fatalf("critical color missing")
	}
	if !strings.Contains(html, "203.0.113.7") || !strings.Contains(html, "Berlin") {
		t.Fatalf("body fields missing")
	}

	ev.Geo = nil
	ev.Severity = model.SeverityMedium
	html = buildHTML(ev)
	if !strings.Contains(html, "#FF9800") || !strings.Contains(html, "Unknown") {
		t.Fatalf("fallback fields missing")
	}
}
