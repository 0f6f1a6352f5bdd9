package notify

import (
	"context"
	"log/slog"
	"sync"

	"sentinel/internal/config"
	"sentinel/internal/model"
)

// Dispatcher fans a processed event out to every configured channel. A
// failing channel is logged and skipped; delivery problems never stop the
// event pipeline. Notification settings are read from the config manager
// at each dispatch, so a reloaded SMTP or notify-service section takes
// effect without a restart.
type Dispatcher struct {
	cfg         *config.Manager
	center      *Center
	broadcaster Broadcaster
	logger      *slog.Logger

	mu         sync.Mutex
	webhook    *WebhookSender
	webhookKey string
}

func NewDispatcher(cfg *config.Manager, broadcaster Broadcaster, logger *slog.Logger) *Dispatcher {
	if cfg == nil {
		cfg = config.NewStaticManager(nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		cfg:         cfg,
		center:      NewCenter(),
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (d *Dispatcher) Center() *Center {
	return d.center
}

// webhookSender returns the sender for the current notify section, or nil
// when only the default in-app channel is configured. The sender is cached
// so its throttle state survives across dispatches, and rebuilt when a
// reload changes the target.
func (d *Dispatcher) webhookSender(nc config.NotifyConfig) *WebhookSender {
	if nc.Service == config.DefaultNotifyService || nc.WebhookURL == "" {
		return nil
	}
	key := nc.Service + "\x00" + nc.WebhookURL
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.webhook == nil || d.webhookKey != key {
		d.webhook = NewWebhookSender(nc.Service, nc.WebhookURL)
		d.webhookKey = key
	}
	return d.webhook
}

func (d *Dispatcher) Dispatch(ctx context.Context, event *model.SecurityEvent) {
	cfg := d.cfg.Get()
	d.center.Post(event)

	if d.broadcaster != nil {
		if err := d.broadcaster.Broadcast(ctx, event); err != nil {
			d.logger.Warn("event broadcast failed", "event_id", event.ID, "error", err)
		}
	}
	if webhook := d.webhookSender(cfg.Notify); webhook != nil {
		if err := webhook.Send(ctx, event); err != nil {
			d.logger.Warn("webhook notification failed", "event_id", event.ID, "error", err)
		}
	}
	if event.Severity == model.SeverityHigh || event.Severity == model.SeverityCritical {
		if err := NewEmailSender(cfg.Email).Send(ctx, event); err != nil {
			d.logger.Warn("email alert failed", "event_id", event.ID, "error", err)
		}
	}
}
