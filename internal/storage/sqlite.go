package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sentinel/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:sentinel.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS security_events (
			event_id TEXT PRIMARY KEY,
			ts TEXT NOT NULL,
			event_type TEXT NOT NULL,
			source_ip TEXT NOT NULL,
			severity TEXT NOT NULL,
			detail TEXT NOT NULL,
			geo_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_ts ON security_events(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_security_events_ip ON security_events(source_ip)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveEvent(ctx context.Context, event model.SecurityEvent) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO security_events (event_id, ts, event_type, source_ip, severity, detail, geo_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		formatTS(event.Timestamp),
		string(event.EventType),
		event.SourceIP,
		string(event.Severity),
		event.Detail,
		encodeGeo(event.Geo),
	)
	return err
}

func (s *sqliteStore) RecentEvents(ctx context.Context, since time.Time, limit int) ([]model.SecurityEvent, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, ts, event_type, source_ip, severity, detail, geo_json
		FROM security_events WHERE ts >= ? ORDER BY ts DESC LIMIT ?`,
		formatTS(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
