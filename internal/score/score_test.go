package score

import (
	"testing"

	"sentinel/internal/model"
)

func eventsWith(severities ...model.Severity) []model.SecurityEvent {
	out := make([]model.SecurityEvent, len(severities))
	for i, sev := range severities {
		out[i] = model.SecurityEvent{Severity: sev}
	}
	return out
}

func TestThreatLevelFromWeights(t *testing.T) {
	// 1 + 1 + 2 = 4, the medium boundary.
	level := ThreatLevel(eventsWith(model.SeverityLow, model.SeverityLow, model.SeverityMedium))
	if level != model.SeverityMedium {
		t.Fatalf("level: %s", level)
	}
}

func TestThreatLevelBoundaries(t *testing.T) {
	cases := []struct {
		total int
		want  model.Severity
	}{
		{0, model.SeverityLow},
		{3, model.SeverityLow},
		{4, model.SeverityMedium},
		{9, model.SeverityMedium},
		{10, model.SeverityHigh},
		{19, model.SeverityHigh},
		{20, model.SeverityCritical},
		{100, model.SeverityCritical},
	}
	for _, c := range cases {
		if got := Level(c.total); got != c.want {
			t.Fatalf("total %d: got %s want %s", c.total, got, c.want)
		}
	}
}

func TestScoreMonotonicity(t *testing.T) {
	events := eventsWith(model.SeverityLow)
	prev := Score(events)
	for _, add := range []model.Severity{model.SeverityLow, model.SeverityMedium, model.SeverityHigh, model.SeverityCritical} {
		events = append(events, model.SecurityEvent{Severity: add})
		next := Score(events)
		if next <= prev {
			t.Fatalf("score not increasing: %d -> %d", prev, next)
		}
		if Level(next).Rank() < Level(prev).Rank() {
			t.Fatalf("level decreased when adding events")
		}
		prev = next
	}
}

func TestEmptyEventsScoreLow(t *testing.T) {
	if Score(nil) != 0 {
		t.Fatalf("score of empty set: %d", Score(nil))
	}
	if ThreatLevel(nil) != model.SeverityLow {
		t.Fatalf("level of empty set: %s", ThreatLevel(nil))
	}
}
