package ingest

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"sentinel/internal/config"
)

// StartKafka launches one consumer per configured signal topic. Each topic
// carries a single signal kind, so no type discriminator is needed.
func StartKafka(ctx context.Context, cfg config.KafkaConfig, handler Handler, logger *slog.Logger) {
	if !cfg.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	type topicRoute struct {
		topic  string
		handle func([]byte) error
	}
	routes := []topicRoute{
		{cfg.AuthFailedTopic, func(data []byte) error {
			sig, err := DecodeAuthFailure(data)
			if err != nil {
				return err
			}
			handler.HandleAuthFailure(sig)
			return nil
		}},
		{cfg.ServiceCallTopic, func(data []byte) error {
			sig, err := DecodeServiceCall(data)
			if err != nil {
				return err
			}
			handler.HandleServiceCall(sig)
			return nil
		}},
		{cfg.DeviceRegistryTopic, func(data []byte) error {
			sig, err := DecodeDeviceRegistry(data)
			if err != nil {
				return err
			}
			handler.HandleDeviceRegistry(sig)
			return nil
		}},
	}
	for _, route := range routes {
		if route.topic == "" {
			continue
		}
		if logger != nil {
			logger.Info("kafka ingest enabled", "brokers", cfg.Brokers, "topic", route.topic, "group_id", cfg.GroupID)
		}
		go consumeTopic(ctx, cfg, route.topic, route.handle, logger)
	}
}

func consumeTopic(ctx context.Context, cfg config.KafkaConfig, topic string, handle func([]byte) error, logger *slog.Logger) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()
	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if logger != nil {
				logger.Warn("kafka read error", "topic", topic, "err", err)
			}
			continue
		}
		if err := handle(m.Value); err != nil {
			if logger != nil {
				logger.Warn("kafka signal decode error", "topic", topic, "err", err)
			}
		}
	}
}
