package pipeline

import (
	"context"
	"log/slog"
	"time"

	"sentinel/internal/events"
	"sentinel/internal/geo"
	"sentinel/internal/model"
	"sentinel/internal/notify"
	"sentinel/internal/score"
	"sentinel/internal/sensors"
	"sentinel/internal/storage"
)

const (
	recentHours = 24
	recentLimit = 50
)

// Coordinator drains the classifier queue and runs each event through
// enrichment, retention, archival, notification and sensor refresh, in that
// order. One worker keeps the event log strictly append-ordered. The
// sensors are additionally recomputed on a scan-interval clock so the 24h
// aggregates decay during quiet periods instead of holding the level of
// the last processed event.
type Coordinator struct {
	resolver     *geo.Resolver
	log          *events.Log
	snapshot     *events.SnapshotStore
	store        storage.Store
	dispatcher   *notify.Dispatcher
	sensors      *sensors.Store
	scanInterval time.Duration
	logger       *slog.Logger
}

func New(
	resolver *geo.Resolver,
	log *events.Log,
	snapshot *events.SnapshotStore,
	store storage.Store,
	dispatcher *notify.Dispatcher,
	sensorStore *sensors.Store,
	scanInterval time.Duration,
	logger *slog.Logger,
) *Coordinator {
	if scanInterval <= 0 {
		scanInterval = 60 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		resolver:     resolver,
		log:          log,
		snapshot:     snapshot,
		store:        store,
		dispatcher:   dispatcher,
		sensors:      sensorStore,
		scanInterval: scanInterval,
		logger:       logger,
	}
}

// Run consumes events until ctx is cancelled and the queue is drained,
// refreshing the published sensors every scan interval in between.
func (c *Coordinator) Run(ctx context.Context, in <-chan model.SecurityEvent) {
	ticker := time.NewTicker(c.scanInterval)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return
			}
			c.Process(ctx, ev)
		case <-ticker.C:
			c.refreshSensors()
		case <-ctx.Done():
			// Drain whatever the classifier managed to enqueue.
			for {
				select {
				case ev, ok := <-in:
					if !ok {
						return
					}
					c.Process(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

// Process handles a single event. Enrichment and delivery failures are
// logged and skipped; the event always reaches the log and the sensors.
func (c *Coordinator) Process(ctx context.Context, ev model.SecurityEvent) {
	if ev.HasResolvableIP() {
		info := c.resolver.Resolve(ctx, ev.SourceIP)
		ev.Geo = &info
	} else {
		info := geo.LocalInfo()
		ev.Geo = &info
	}

	c.log.Add(ev)
	if c.snapshot != nil {
		if err := c.snapshot.Save(c.log.Ordered()); err != nil {
			c.logger.Warn("event snapshot write failed", "error", err)
		}
	}
	if c.store != nil {
		if err := c.store.SaveEvent(ctx, ev); err != nil {
			c.logger.Warn("event archive write failed", "event_id", ev.ID, "error", err)
		}
	}

	c.dispatcher.Dispatch(ctx, &ev)
	c.refreshSensors()

	c.logger.Info("security event processed",
		"event_id", ev.ID,
		"type", ev.EventType,
		"ip", ev.SourceIP,
		"severity", ev.Severity,
	)
}

func (c *Coordinator) refreshSensors() {
	recent := c.log.Recent(recentHours, recentLimit)
	snap := model.Snapshot{
		FailedLogins: c.log.CountFailedLogins(recentHours),
		ThreatLevel:  score.ThreatLevel(recent),
		RecentEvents: recent,
		TotalEvents:  c.log.Len(),
	}
	if last := c.log.Last(); last != nil {
		snap.LastEvent = last
	}
	c.sensors.Update(snap)
}
