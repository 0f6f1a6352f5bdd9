package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"sentinel/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/sentinel?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
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
			geo_json JSONB
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

func (s *postgresStore) SaveEvent(ctx context.Context, event model.SecurityEvent) error {
	if s.db == nil {
		return nil
	}
	geo := encodeGeo(event.Geo)
	var geoArg any
	if geo != "" {
		geoArg = geo
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO security_events (event_id, ts, event_type, source_ip, severity, detail, geo_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		event.ID,
		formatTS(event.Timestamp),
		string(event.EventType),
		event.SourceIP,
		string(event.Severity),
		event.Detail,
		geoArg,
	)
	return err
}

func (s *postgresStore) RecentEvents(ctx context.Context, since time.Time, limit int) ([]model.SecurityEvent, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, ts, event_type, source_ip, severity, detail, COALESCE(geo_json::text, '')
		FROM security_events WHERE ts >= $1 ORDER BY ts DESC LIMIT $2`,
		formatTS(since), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
