package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinel/internal/api"
	"sentinel/internal/config"
	"sentinel/internal/detector"
	"sentinel/internal/events"
	"sentinel/internal/geo"
	"sentinel/internal/ingest"
	"sentinel/internal/logging"
	"sentinel/internal/model"
	"sentinel/internal/monitor"
	"sentinel/internal/notify"
	"sentinel/internal/pipeline"
	"sentinel/internal/sensors"
	"sentinel/internal/storage"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "sentinel.yaml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "sentinel:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	manager, err := config.NewManager(config.ResolvePath(configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := manager.Get()
	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("security sentinel starting", "version", version, "config", manager.Path())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventLog := events.NewLog(cfg.Events.StoreLimit)
	snapshot := events.NewSnapshotStore(config.ResolvePath(cfg.Events.SnapshotPath))
	if prior := snapshot.Load(); len(prior) > 0 {
		eventLog.Seed(prior)
		logger.Info("event history restored", "events", eventLog.Len())
	}

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open event archive: %w", err)
	}
	if store != nil {
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := store.Init(initCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("init event archive: %w", err)
		}
		defer store.Close()
		logger.Info("event archive enabled", "driver", cfg.Storage.Driver)
	}

	var broadcaster notify.Broadcaster
	if kcfg := cfg.Ingest.Kafka; kcfg.Enabled && kcfg.BroadcastTopic != "" {
		kb := notify.NewKafkaBroadcaster(kcfg.Brokers, kcfg.BroadcastTopic)
		defer kb.Close()
		broadcaster = kb
		logger.Info("event broadcast enabled", "topic", kcfg.BroadcastTopic)
	}
	dispatcher := notify.NewDispatcher(manager, broadcaster, logging.Component(logger, "notify"))

	resolver := geo.NewResolver(cfg.Geo.APIKey, cfg.Geo.Timeout, logging.Component(logger, "geo"))
	det := detector.New(cfg.Monitor.FailedLoginThreshold, cfg.Monitor.BruteForceWindow)
	sensitive := monitor.BuildCapabilitySet(cfg.Monitor.SensitiveServices)
	queue := make(chan model.SecurityEvent, cfg.Monitor.QueueBuffer)
	mon := monitor.New(det, sensitive, queue, logging.Component(logger, "monitor"))
	sensorStore := sensors.NewStore()

	coordinator := pipeline.New(
		resolver,
		eventLog,
		snapshot,
		store,
		dispatcher,
		sensorStore,
		cfg.Monitor.ScanInterval,
		logging.Component(logger, "pipeline"),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		coordinator.Run(ctx, queue)
	}()

	ingestLogger := logging.Component(logger, "ingest")
	ingest.StartKafka(ctx, cfg.Ingest.Kafka, mon, ingestLogger)
	ingest.StartREST(ctx, cfg.Ingest.REST, mon, ingestLogger)
	ingest.StartFileTail(ctx, cfg.Ingest.FileTail, mon, ingestLogger)

	api.Start(ctx, manager, eventLog, sensorStore, dispatcher.Center(), mon, logging.Component(logger, "api"), version)

	go manager.Watch(3*time.Second, func(next *config.Config) {
		logger.Info("configuration reloaded", "log_level", next.LogLevel)
	}, func(err error) {
		logger.Warn("configuration reload failed", "err", err)
	}, ctx.Done())

	<-ctx.Done()
	logger.Info("shutting down")
	<-done
	if err := snapshot.Save(eventLog.Ordered()); err != nil {
		logger.Warn("final snapshot write failed", "err", err)
	}
	return nil
}
