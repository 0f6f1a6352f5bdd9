package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"sentinel/internal/config"
	"sentinel/internal/model"
)

// Store archives processed security events. The in-memory event log is the
// source of truth for live queries; the archive exists for long-term audit.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveEvent(ctx context.Context, event model.SecurityEvent) error
	RecentEvents(ctx context.Context, since time.Time, limit int) ([]model.SecurityEvent, error)
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func encodeGeo(info *model.GeoInfo) string {
	if info == nil {
		return ""
	}
	data, _ := json.Marshal(info)
	return string(data)
}

func decodeGeo(raw string) *model.GeoInfo {
	if raw == "" {
		return nil
	}
	var info model.GeoInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil
	}
	return &info
}

// Timestamps are stored as RFC 3339 text so both drivers read them back
// identically.
func formatTS(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

func scanEvents(rows *sql.Rows) ([]model.SecurityEvent, error) {
	var out []model.SecurityEvent
	for rows.Next() {
		var ev model.SecurityEvent
		var ts, eventType, severity, geoJSON string
		if err := rows.Scan(&ev.ID, &ts, &eventType, &ev.SourceIP, &severity, &ev.Detail, &geoJSON); err != nil {
			return nil, err
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		ev.EventType = model.EventType(eventType)
		ev.Severity = model.Severity(severity)
		ev.Geo = decodeGeo(geoJSON)
		out = append(out, ev)
	}
	return out, rows.Err()
}
