package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"sentinel/internal/model"
)

// WebhookSender delivers the optional secondary notification to a named
// external service over HTTP.
type WebhookSender struct {
	service  string
	url      string
	client   *http.Client
	throttle *Throttle
	cooldown time.Duration
}

func NewWebhookSender(service, url string) *WebhookSender {
	return &WebhookSender{
		service:  service,
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		throttle: NewThrottle(),
		cooldown: 500 * time.Millisecond,
	}
}

type webhookPayload struct {
	Message string `json:"message"`
	Title   string `json:"title"`
}

func (s *WebhookSender) Send(ctx context.Context, event *model.SecurityEvent) error {
	if s.url == "" {
		return fmt.Errorf("notify service %q has no webhook url", s.service)
	}
	if !s.throttle.Allow(s.service, s.cooldown) {
		return nil
	}
	geo := event.Geo
	if geo == nil {
		geo = &model.GeoInfo{}
	}
	payload := webhookPayload{
		Title: "Security Sentinel Alert",
		Message: fmt.Sprintf("[%s] %s from %s (%s, %s)",
			strings.ToUpper(string(event.Severity)),
			event.EventType,
			event.SourceIP,
			orUnknown(geo.City),
			orUnknown(geo.Country),
		),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify service %q: %w", s.service, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify service %q returned status %d", s.service, resp.StatusCode)
	}
	return nil
}
