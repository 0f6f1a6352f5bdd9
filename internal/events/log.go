package events

import (
	"sync"
	"time"

	"sentinel/internal/model"
)

// Log is the bounded, insertion-ordered security event history. Appends
// drop the oldest entry once the limit is reached; reads are time-filtered
// and returned newest first.
type Log struct {
	mu    sync.RWMutex
	buf   []model.SecurityEvent
	limit int
}

func NewLog(limit int) *Log {
	if limit <= 0 {
		limit = 500
	}
	return &Log{limit: limit}
}

// Seed replaces the log contents with previously persisted events, keeping
// only the newest limit entries.
func (l *Log) Seed(events []model.SecurityEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(events) > l.limit {
		events = events[len(events)-l.limit:]
	}
	l.buf = append(l.buf[:0], events...)
}

// Add appends an event, stamping a timestamp if the classifier did not.
func (l *Log) Add(event model.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buf) < l.limit {
		l.buf = append(l.buf, event)
		return
	}
	copy(l.buf, l.buf[1:])
	l.buf[len(l.buf)-1] = event
}

// Recent returns events from the last given number of hours, newest first,
// capped at limit.
func (l *Log) Recent(hours int, limit int) []model.SecurityEvent {
	if limit <= 0 {
		limit = 50
	}
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	l.mu.RLock()
	defer l.mu.RUnlock()
	recent := make([]model.SecurityEvent, 0, limit)
	for i := len(l.buf) - 1; i >= 0 && len(recent) < limit; i-- {
		if l.buf[i].Timestamp.Before(cutoff) {
			continue
		}
		recent = append(recent, l.buf[i])
	}
	return recent
}

// All returns the newest limit stored events, newest first.
func (l *Log) All(limit int) []model.SecurityEvent {
	if limit <= 0 {
		limit = 100
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit > len(l.buf) {
		limit = len(l.buf)
	}
	out := make([]model.SecurityEvent, 0, limit)
	for i := len(l.buf) - 1; i >= len(l.buf)-limit; i-- {
		out = append(out, l.buf[i])
	}
	return out
}

// Since returns all events at or after ts, newest first.
func (l *Log) Since(ts time.Time) []model.SecurityEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.SecurityEvent, 0)
	for i := len(l.buf) - 1; i >= 0; i-- {
		if l.buf[i].Timestamp.Before(ts) {
			continue
		}
		out = append(out, l.buf[i])
	}
	return out
}

// CountFailedLogins counts AUTH_FAILED events in the last given hours.
func (l *Log) CountFailedLogins(hours int) int {
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for i := range l.buf {
		if l.buf[i].EventType == model.EventAuthFailed && !l.buf[i].Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}

// Last returns the most recent event, or nil when the log is empty.
func (l *Log) Last() *model.SecurityEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.buf) == 0 {
		return nil
	}
	last := l.buf[len(l.buf)-1]
	return &last
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buf)
}

// Ordered returns a copy of the log in insertion order, oldest first, for
// persistence.
func (l *Log) Ordered() []model.SecurityEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.SecurityEvent, len(l.buf))
	copy(out, l.buf)
	return out
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = nil
}
