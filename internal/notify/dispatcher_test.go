package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"sentinel/internal/config"
	"sentinel/internal/model"
)

type recordingBroadcaster struct {
	events []*model.SecurityEvent
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, event *model.SecurityEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingBroadcaster) Close() error { return nil }

func TestDispatchPostsAndBroadcasts(t *testing.T) {
	rec := &recordingBroadcaster{}
	d := NewDispatcher(config.NewStaticManager(nil), rec, nil)

	d.Dispatch(context.Background(), sampleEvent())
	if len(d.Center().List()) != 1 {
		t.Fatalf("notification not posted")
	}
	if len(rec.events) != 1 {
		t.Fatalf("broadcast count: %d", len(rec.events))
	}
}

func TestDispatchWithoutBroadcaster(t *testing.T) {
	d := NewDispatcher(config.NewStaticManager(nil), nil, nil)
	// Must not panic without a broadcaster or webhook configured.
	d.Dispatch(context.Background(), sampleEvent())
	if len(d.Center().List()) != 1 {
		t.Fatalf("notification not posted")
	}
}

func TestDispatchPicksUpReloadedNotifyConfig(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	manager := config.NewStaticManager(cfg)
	d := NewDispatcher(manager, nil, nil)

	// Default channel only: no webhook call.
	d.Dispatch(context.Background(), sampleEvent())
	if calls.Load() != 0 {
		t.Fatalf("webhook called with default channel")
	}

	next := *cfg
	next.Notify = config.NotifyConfig{Service: "notify.mobile_app", WebhookURL: srv.URL}
	if err := manager.Update(&next); err != nil {
		t.Fatalf("update config: %v", err)
	}

	ev := sampleEvent()
	ev.SourceIP = "198.51.100.9"
	d.Dispatch(context.Background(), ev)
	if calls.Load() != 1 {
		t.Fatalf("webhook calls after reload: %d", calls.Load())
	}
}
