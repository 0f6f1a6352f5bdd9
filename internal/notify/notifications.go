package notify

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sentinel/internal/model"
)

// Notification is the default in-app alert surfaced for every security
// event. The ID is derived from event type and source IP so repeated alerts
// for the same attacker replace each other instead of piling up.
type Notification struct {
	ID        string    `json:"notification_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Center is the in-memory notification store exposed over the API.
type Center struct {
	mu    sync.RWMutex
	items map[string]Notification
}

func NewCenter() *Center {
	return &Center{items: make(map[string]Notification)}
}

func NotificationID(event *model.SecurityEvent) string {
	return fmt.Sprintf("ss_%s_%s", event.EventType, event.SourceIP)
}

func (c *Center) Post(event *model.SecurityEvent) Notification {
	n := Notification{
		ID:        NotificationID(event),
		Title:     fmt.Sprintf("Security Sentinel: %s [%s]", event.EventType, strings.ToUpper(string(event.Severity))),
		Message:   formatMessage(event),
		CreatedAt: time.Now().UTC(),
	}
	c.mu.Lock()
	c.items[n.ID] = n
	c.mu.Unlock()
	return n
}

func (c *Center) List() []Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Notification, 0, len(c.items))
	for _, n := range c.items {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
}

func (c *Center) Clear() {
	c.mu.Lock()
	c.items = make(map[string]Notification)
	c.mu.Unlock()
}

func formatMessage(event *model.SecurityEvent) string {
	geo := event.Geo
	if geo == nil {
		geo = &model.GeoInfo{}
	}
	return fmt.Sprintf(
		"**Event:** %s\n**Severity:** %s\n**Source IP:** `%s`\n**Location:** %s, %s (%s)\n**Detail:** %s\n**Time:** %s",
		event.EventType,
		strings.ToUpper(string(event.Severity)),
		event.SourceIP,
		orUnknown(geo.City),
		orUnknown(geo.Country),
		orUnknown(geo.Org),
		event.Detail,
		event.Timestamp.UTC().Format(time.RFC3339),
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
