package notify

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"sentinel/internal/model"
)

// Broadcaster publishes every processed event to an external bus so other
// systems can react to it.
type Broadcaster interface {
	Broadcast(ctx context.Context, event *model.SecurityEvent) error
	Close() error
}

// KafkaBroadcaster writes events to a single broadcast topic, keyed by
// source IP so consumers see per-source ordering.
type KafkaBroadcaster struct {
	writer *kafka.Writer
}

func NewKafkaBroadcaster(brokers []string, topic string) *KafkaBroadcaster {
	return &KafkaBroadcaster{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

type broadcastPayload struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	IP        string  `json:"ip"`
	Severity  string  `json:"severity"`
	Detail    string  `json:"detail"`
	Timestamp string  `json:"timestamp"`
	Country   string  `json:"country,omitempty"`
	City      string  `json:"city,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
}

func (b *KafkaBroadcaster) Broadcast(ctx context.Context, event *model.SecurityEvent) error {
	payload := broadcastPayload{
		ID:        event.ID,
		Type:      string(event.EventType),
		IP:        event.SourceIP,
		Severity:  string(event.Severity),
		Detail:    event.Detail,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
	}
	if event.Geo != nil {
		payload.Country = event.Geo.Country
		payload.City = event.Geo.City
		payload.Lat = event.Geo.Lat
		payload.Lon = event.Geo.Lon
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SourceIP),
		Value: value,
	})
}

func (b *KafkaBroadcaster) Close() error {
	return b.writer.Close()
}
